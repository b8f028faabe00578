package models

import "strings"

// CommandType enumerates supported quote commands.
type CommandType string

const (
	CommandCreate     CommandType = "create"
	CommandModify     CommandType = "modify"
	CommandDelete     CommandType = "delete"
	CommandList       CommandType = "list"
	CommandFindClient CommandType = "find-client"
	CommandFindNumber CommandType = "find-number"
	CommandFindMonth  CommandType = "find-month"
	CommandSummary    CommandType = "summary"
	CommandMonthly    CommandType = "monthly"
	CommandStock      CommandType = "stock"
	CommandStockEdit  CommandType = "stock-edit"
	CommandUnknown    CommandType = "unknown"
)

var knownCommands = map[CommandType]struct{}{
	CommandCreate:     {},
	CommandModify:     {},
	CommandDelete:     {},
	CommandList:       {},
	CommandFindClient: {},
	CommandFindNumber: {},
	CommandFindMonth:  {},
	CommandSummary:    {},
	CommandMonthly:    {},
	CommandStock:      {},
	CommandStockEdit:  {},
}

// Command represents a parsed invocation such as `create client="Ana" number=3`.
type Command struct {
	Type CommandType
	Raw  string
	Args map[string]string
}

// ParseCommand derives a Command from command-line arguments. The first
// argument names the command; the rest are key=value pairs with keys
// lowercased. Arguments without '=' are ignored.
func ParseCommand(args []string) Command {
	cmd := Command{Raw: strings.Join(args, " "), Args: map[string]string{}}

	if len(args) == 0 {
		cmd.Type = CommandUnknown
		return cmd
	}

	head := CommandType(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(args[0])), "/"))
	if _, ok := knownCommands[head]; ok {
		cmd.Type = head
	} else {
		cmd.Type = CommandUnknown
	}

	for _, arg := range args[1:] {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			continue
		}
		cmd.Args[strings.ToLower(strings.TrimSpace(key))] = value
	}

	return cmd
}
