// Command yamdbctl is the operator CLI: schema migration, superuser
// bootstrap, and fixture import. It reads the same configuration as the
// server.
package main

import "github.com/sakif/yamdb/cmd/yamdbctl/commands"

func main() {
	commands.Execute()
}
