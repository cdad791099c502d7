package models

import "time"

type Result struct {
	Executed []string
	Skipped  []string
	Failed   []FailedTask
	Duration time.Duration
}

type FailedTask struct {
	Name  string
	Error error
}
