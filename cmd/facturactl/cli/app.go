package cli

import (
	"fmt"
	"io"

	ucli "github.com/urfave/cli/v2"

	"github.com/facturapro/facturapro/internal/invoice/export"
)

// NewApp builds the facturactl command tree. newExporter is called lazily so
// slug never pays for font parsing.
func NewApp(stdout, stderr io.Writer, newExporter func() (Exporter, error)) *ucli.App {
	return &ucli.App{
		Name:      "facturactl",
		Usage:     "render FacturaPro invoices from the command line",
		Writer:    stdout,
		ErrWriter: stderr,
		Commands: []*ucli.Command{
			{
				Name:      "render",
				Usage:     "render a JSON or YAML invoice to PDF",
				ArgsUsage: " ",
				Flags: []ucli.Flag{
					&ucli.StringFlag{Name: "in", Aliases: []string{"i"}, Usage: "invoice file (.json, .yaml)", Required: true},
					&ucli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output directory", Value: "."},
					&ucli.StringSliceFlag{Name: "sections", Aliases: []string{"s"}, Usage: "enabled sections in order, e.g. header,client,items,totals"},
					&ucli.Int64Flag{Name: "logo-max-bytes", Usage: "logo size limit", Value: 2 << 20},
				},
				Action: func(c *ucli.Context) error {
					exp, err := newExporter()
					if err != nil {
						return err
					}
					_, err = Render(c.Context, RenderOptions{
						In:           c.String("in"),
						OutDir:       c.String("out"),
						Sections:     c.StringSlice("sections"),
						LogoMaxBytes: c.Int64("logo-max-bytes"),
						Exporter:     exp,
						Stdout:       c.App.Writer,
					})
					return err
				},
			},
			{
				Name:      "slug",
				Usage:     "print the PDF filename for a company name",
				ArgsUsage: "NAME",
				Action: func(c *ucli.Context) error {
					if c.NArg() > 1 {
						return ucli.Exit("slug takes a single quoted NAME", 2)
					}
					_, err := fmt.Fprintln(c.App.Writer, export.Filename(c.Args().First()))
					return err
				},
			},
		},
	}
}
