package main

import "github.com/lu-zhengda/courier/internal/cli"

func main() {
	cli.Execute()
}
