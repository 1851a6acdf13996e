package main

import (
	"bytes"
	"testing"

	"github.com/google/subcommands"
	"github.com/stretchr/testify/assert"
)

func TestWriteSchema(t *testing.T) {
	tests := []struct {
		backend  string
		want     subcommands.ExitStatus
		contains string
	}{
		{backend: "postgres", want: subcommands.ExitSuccess, contains: "CREATE TABLE IF NOT EXISTS users"},
		{backend: "supabase", want: subcommands.ExitSuccess, contains: "helios_apply_ledger"},
		{backend: "sqlite", want: subcommands.ExitUsageError},
	}

	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			var buf bytes.Buffer

			assert.Equal(t, tt.want, writeSchema(&buf, tt.backend))
			assert.Contains(t, buf.String(), tt.contains)
		})
	}
}
