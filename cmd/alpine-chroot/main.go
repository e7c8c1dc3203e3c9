package main

import "alpine-chroot/internal/cli"

func main() {
	cli.Execute()
}
