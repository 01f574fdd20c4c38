// cmd/fieldctl/main.go
package main

import "fieldsales-workers/internal/cmd"

func main() {
	cmd.Execute()
}
