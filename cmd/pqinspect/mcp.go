package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/pqinspect/internal/mcpserver"
)

func mcpCmd() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Start the MCP (Model Context Protocol) server over stdio",
		Description: `Exposes inspection as MCP tools for LLM clients:
  inspect_position  type and hover text at a cursor
  complete          ranked completions for the partial identifier
  list_scope        identifiers visible at a cursor
  check_documents   parse and type documents on disk`,
		Action: func(c *cli.Context) error {
			svc, err := newService(c)
			if err != nil {
				return err
			}
			return mcpserver.NewServer(version, svc).Run(c.Context)
		},
		Subcommands: []*cli.Command{
			{
				Name:  "manifest",
				Usage: "Print the MCP registry manifest as JSON",
				Action: func(c *cli.Context) error {
					data, err := mcpserver.GenerateManifest(version)
					if err != nil {
						return err
					}
					_, err = fmt.Fprintln(appWriter(c), string(data))
					return err
				},
			},
		},
	}
}
