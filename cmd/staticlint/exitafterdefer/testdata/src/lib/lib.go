package lib

import "os"

func main() {
	defer os.Stdout.Sync()
	os.Exit(1)
}
