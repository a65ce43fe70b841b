package models

import "strings"

// CommandType enumerates commands representatives can send over WhatsApp.
type CommandType string

const (
	CommandSummary CommandType = "resumo"
	CommandMaleta  CommandType = "maleta"
	CommandCycle   CommandType = "ciclo"
	CommandHelp    CommandType = "ajuda"
	CommandUnknown CommandType = "unknown"
)

// Command represents a parsed instruction extracted from WhatsApp text.
type Command struct {
	Type CommandType
	Raw  string
	Args []string
}

// ParseCommand derives a Command instance from free-form text messages.
func ParseCommand(message string) Command {
	normalized := strings.TrimSpace(strings.ToLower(message))
	cmd := Command{Raw: message, Type: CommandUnknown}

	tokens := strings.Fields(normalized)
	if len(tokens) == 0 {
		return cmd
	}

	switch head := strings.TrimPrefix(tokens[0], "/"); head {
	case string(CommandSummary):
		cmd.Type = CommandSummary
	case string(CommandMaleta):
		cmd.Type = CommandMaleta
	case string(CommandCycle):
		cmd.Type = CommandCycle
	case string(CommandHelp):
		cmd.Type = CommandHelp
	}

	if len(tokens) > 1 {
		cmd.Args = tokens[1:]
	}

	return cmd
}
