package main

import (
	"io"
	"strconv"

	"github.com/geoglitch/presence-service/internal/domain"

	"github.com/olekukonko/tablewriter"
)

func renderUsers(w io.Writer, users []domain.Summary) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Nickname", "Lat", "Lng", "Accuracy"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)

	for _, u := range users {
		lat, lng, acc := "-", "-", "-"
		if u.Position != nil {
			lat = formatFloat(u.Position.Lat)
			lng = formatFloat(u.Position.Lng)
			if u.Position.Accuracy != nil {
				acc = formatFloat(*u.Position.Accuracy)
			}
		}
		table.Append([]string{u.ID, u.Nickname, lat, lng, acc})
	}
	table.Render()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
