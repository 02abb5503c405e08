// Command portalctl runs maintenance tasks against a resource portal deployment.
package main

import "resource-portal-go/cmd/portalctl/commands"

func main() {
	commands.Execute()
}
