package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCommand(t *testing.T) {
	cases := []struct {
		in   string
		want CommandType
		args []string
	}{
		{"/resumo", CommandSummary, nil},
		{"  MALETA  ", CommandMaleta, nil},
		{"/ciclo", CommandCycle, nil},
		{"/ajuda agora", CommandHelp, []string{"agora"}},
		{"olá", CommandUnknown, nil},
		{"", CommandUnknown, nil},
	}

	for _, tc := range cases {
		cmd := ParseCommand(tc.in)
		assert.Equal(t, tc.want, cmd.Type, tc.in)
		assert.Equal(t, tc.args, cmd.Args, tc.in)
		assert.Equal(t, tc.in, cmd.Raw)
	}
}
