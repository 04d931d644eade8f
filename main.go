/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/check-vero/apiserver/cmd"

func main() {
	cmd.Execute()
}
