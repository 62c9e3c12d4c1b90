package main

import "github.com/Yates-Labs/pdfchat/cmd"

func main() {
	cmd.Execute()
}
