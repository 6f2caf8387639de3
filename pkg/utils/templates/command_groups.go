package templates

import (
	"github.com/spf13/cobra"
)

// CommandGroup is a titled set of subcommands shown together in help.
type CommandGroup struct {
	Message  string
	Commands []*cobra.Command
}

type CommandGroups []CommandGroup

// Add attaches every grouped command to c and registers the cobra groups.
func (g CommandGroups) Add(c *cobra.Command) {
	for i, group := range g {
		id := group.Message
		c.AddGroup(&cobra.Group{ID: id, Title: group.Message})
		for _, cmd := range g[i].Commands {
			cmd.GroupID = id
			c.AddCommand(cmd)
		}
	}
}
