package main

import (
	"fmt"
	"os"
)

func main() {
	for _, key := range []string{"SETTLE_ROOT", "SETTLE_TASK", "GO_VAR", "GLOBAL_VAR", "LOCAL_SECRET"} {
		fmt.Printf("%s=%s\n", key, os.Getenv(key))
	}
}
