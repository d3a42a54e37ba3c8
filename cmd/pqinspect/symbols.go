package main

import (
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/pqinspect/internal/output"
)

type symbolRow struct {
	Name        string `json:"name" toon:"name"`
	Kind        string `json:"kind" toon:"kind"`
	Type        string `json:"type" toon:"type"`
	Description string `json:"description,omitempty" toon:"description,omitempty"`
}

func symbolsCmd() *cli.Command {
	return &cli.Command{
		Name:      "symbols",
		Usage:     "List library symbols, optionally filtered by name prefix",
		ArgsUsage: "[prefix]",
		Action: func(c *cli.Context) error {
			svc, err := newService(c)
			if err != nil {
				return err
			}
			lib := svc.Library()
			prefix := c.Args().First()

			data := []symbolRow{}
			var rows [][]string
			for _, name := range lib.Names() {
				if !strings.HasPrefix(name, prefix) {
					continue
				}
				sym, _ := lib.Lookup(name)
				kind := "value"
				if sym.IsFunction() {
					kind = "function"
				}
				typeText := ""
				if sym.Type != nil {
					typeText = sym.Type.String()
				}
				data = append(data, symbolRow{Name: name, Kind: kind, Type: typeText, Description: sym.Description})
				rows = append(rows, []string{name, kind, typeText})
			}
			return render(c, output.NewTable(
				"Library Symbols",
				[]string{"Name", "Kind", "Type"},
				rows,
				nil,
				data,
			))
		},
	}
}
