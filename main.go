// Package main is the entry point for the luaobf CLI.
package main

import "github.com/BillChirico/lua-obfuscator/cmd"

func main() {
	cmd.Execute()
}
