package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/twoseats/twoseats/internal/media"
)

// DeviceTable renders the available capture devices.
type DeviceTable struct {
	devices []media.DeviceInfo
}

// NewDeviceTable creates a device table.
func NewDeviceTable(devices []media.DeviceInfo) *DeviceTable {
	return &DeviceTable{devices: devices}
}

// View renders the table as a string
func (t *DeviceTable) View() string {
	if len(t.devices) == 0 {
		return MutedStyle.Render("No capture devices configured")
	}

	headers := []string{"ID", "Label", "Kind", "Facing"}

	var rows [][]string
	for _, d := range t.devices {
		facing := d.Facing
		if facing == "" {
			facing = "-"
		}
		rows = append(rows, []string{d.ID, truncate(d.Label, 40), d.Kind, facing})
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Primary)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle
			case row%2 == 0:
				return TableRowStyle
			default:
				return TableRowAltStyle
			}
		})

	return tbl.Render()
}

// Render outputs the table directly to stdout
func (t *DeviceTable) Render() {
	fmt.Println(t.View())
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

// RoomInfo is the invitation box shown to the host.
type RoomInfo struct {
	RoomCode string
	RoomLink string
}

func NewRoomInfo(roomCode, roomLink string) *RoomInfo {
	return &RoomInfo{
		RoomCode: roomCode,
		RoomLink: roomLink,
	}
}

func (r *RoomInfo) View() string {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(Success).
		Padding(1, 2)

	content := fmt.Sprintf("%s Room Ready!\n\n%s Room Code:  %s\n%s Invite:     %s",
		IconSofa,
		IconCopy, BoldStyle.Foreground(Primary).Render(r.RoomCode),
		IconWeb, MutedStyle.Render(r.RoomLink),
	)

	return boxStyle.Render(content)
}
