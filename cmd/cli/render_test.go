package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/and161185/forever-vivid/internal/model"
)

func TestRenderFeed(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	renderFeed(&buf, nil)
	require.Contains(t, buf.String(), "No memories yet")

	buf.Reset()
	renderFeed(&buf, []model.Memory{
		{ID: "m2", Date: "March 5, 2025", Description: "Second", Tags: []string{"a", "b"}, HasMusic: true},
		{ID: "m1", Date: "March 4, 2025", Description: "First"},
	})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	require.True(t, strings.HasPrefix(lines[0], "ID"))
	require.Contains(t, lines[1], "Second")
	require.Contains(t, lines[1], "a, b")
	require.Contains(t, lines[1], "yes")
	require.Contains(t, lines[2], "First")
}

func TestRenderMemory(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	renderMemory(&buf, model.Memory{
		Description:  "Beach day",
		Tags:         []string{"sea"},
		FullImageURL: "https://img/full",
		CreatedAt:    time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC),
	})
	out := buf.String()
	require.True(t, strings.HasPrefix(out, "Beach day\n"))
	require.Contains(t, out, "March 4, 2025")
	require.Contains(t, out, "sea")
	require.Contains(t, out, "no")
	require.Contains(t, out, "https://img/full")
}

func TestProgressBar(t *testing.T) {
	t.Parallel()

	require.Equal(t, "[----------]", progressBar(0))
	require.Equal(t, "[#####-----]", progressBar(55))
	require.Equal(t, "[##########]", progressBar(100))
	require.Equal(t, "[##########]", progressBar(250))
	require.Equal(t, "[----------]", progressBar(-3))
}

func TestRenderProjects(t *testing.T) {
	t.Parallel()

	b := model.Categorize([]model.Project{
		{ID: "p1", Type: model.ProjectBook, Title: "Summer", Progress: 10, Cover: "c", Images: []string{"x", "y"}},
		{ID: "p2", Type: model.ProjectFilm, Title: "Trip", Thumbnail: "th"},
		{ID: "p3", Title: "Typeless"},
	})

	var buf bytes.Buffer
	renderProjects(&buf, b, model.ProjectBook)
	out := buf.String()
	require.Contains(t, out, "[Memory Books (1)]")
	require.Contains(t, out, "Memory Films (1)")
	require.Contains(t, out, "Printed Gifts (0)")
	require.Contains(t, out, "Summer")
	require.Contains(t, out, "pages: 2")
	require.NotContains(t, out, "Trip")
	require.NotContains(t, out, "Typeless")

	buf.Reset()
	renderProjects(&buf, b, model.ProjectGift)
	require.Contains(t, buf.String(), "No printed gifts yet")
	require.Contains(t, buf.String(), "--type gift")
}

func TestTabName(t *testing.T) {
	t.Parallel()

	require.Equal(t, "memoryBooks", tabName(model.ProjectBook))
	require.Equal(t, "memoryFilms", tabName(model.ProjectFilm))
	require.Equal(t, "printedGifts", tabName(model.ProjectGift))
	require.Empty(t, tabName(""))
}
