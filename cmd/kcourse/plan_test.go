package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanOptionsTripRequest(t *testing.T) {
	img := filepath.Join(t.TempDir(), "haeundae.png")
	require.NoError(t, os.WriteFile(img, []byte("\x89PNG\r\n\x1a\n"), 0o644))

	req, err := planOptions{
		Destination: "부산",
		Purpose:     "드라마 촬영지",
		People:      2,
		StartDate:   "2025-11-01",
		EndDate:     "2025-11-02",
		ImagePath:   img,
	}.tripRequest()
	require.NoError(t, err)
	assert.Equal(t, "2025-11-01", req.StartDate.String())
	require.True(t, req.HasPhoto())
	assert.Equal(t, "image/png", req.Photo.MIMEType)
	assert.Equal(t, "haeundae.png", req.Photo.Filename)
}

func TestPlanOptionsRejectsBadDate(t *testing.T) {
	_, err := planOptions{StartDate: "tomorrow", EndDate: "2025-11-02"}.tripRequest()
	assert.ErrorContains(t, err, "--start")
}

func TestRootCmdHasSubcommands(t *testing.T) {
	root := newRootCmd()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["plan"])
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}
