package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunArgumentValidation(t *testing.T) {
	mount := t.TempDir()

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"no arguments", []string{}, exitError},
		{"version short-circuits", []string{"--version"}, exitOK},
		{"help short-circuits", []string{"--help"}, exitOK},
		{"unknown option", []string{"--frobnicate", "1", "1", mount}, exitError},
		{"too few positionals", []string{"1", "1"}, exitError},
		{"non-numeric drive id", []string{"abc", "1", mount}, exitError},
		{"non-numeric partition", []string{"1", "x", mount}, exitError},
		{"zero partition", []string{"1", "0", mount}, exitError},
		{"missing mount point", []string{"1", "1", mount + "/nope"}, exitError},
		{"resume with skip-existing", []string{"--resume", "--skip-existing", "1", "1", mount}, exitError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, run(tt.args))
		})
	}
}
