package main

import "github.com/crawlworks/seoaudit/cmd"

func main() {
	cmd.Execute()
}
