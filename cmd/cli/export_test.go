package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportObjectName(t *testing.T) {
	now := time.Date(2026, 10, 15, 8, 30, 0, 0, time.FixedZone("WAT", 3600))
	assert.Equal(t, "waitlist-20261015T073000Z.csv", exportObjectName(now))
}

func TestWriteExport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeExport(&buf, []byte("id,email\n")))
	assert.Equal(t, "id,email\n", buf.String())
}

func TestRunExport_RejectsUnknownFlag(t *testing.T) {
	assert.Error(t, runExport(nil, []string{"--bogus"}))
}
