package ui

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// SessionSummary is printed when the room closes.
type SessionSummary struct {
	RoomCode     string
	Role         string
	Duration     time.Duration
	ChatMessages int
	CameraUsed   bool
	MovieShared  bool
}

// SessionSummaryView renders the closing summary table.
func SessionSummaryView(s SessionSummary) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.Style().Color.Header = text.Colors{text.FgHiMagenta, text.Bold}

	t.AppendHeader(table.Row{"Session", ""})
	t.AppendRows([]table.Row{
		{"Room", s.RoomCode},
		{"Role", s.Role},
		{"Duration", s.Duration.Round(time.Second).String()},
		{"Chat messages", s.ChatMessages},
		{"Camera used", yesNo(s.CameraUsed)},
		{"Movie shared", yesNo(s.MovieShared)},
	})

	return t.Render()
}

// RenderSessionSummary outputs the summary directly to stdout.
func RenderSessionSummary(s SessionSummary) {
	fmt.Println(SessionSummaryView(s))
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
