package cli

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"pagedb/pkg/catalog"
	"pagedb/pkg/config"
	"pagedb/pkg/log/wal"
	"pagedb/pkg/primitives"
	"pagedb/pkg/storage/pager"
)

func newInspectCmd(cfg func() *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Low-level views of the storage files",
	}
	cmd.AddCommand(newInspectPagesCmd(cfg))
	cmd.AddCommand(newInspectWALCmd(cfg))
	cmd.AddCommand(newInspectCatalogCmd(cfg))
	return cmd
}

// openPager opens the backing file read-mostly for inspection. The WAL
// handle is needed by the pager but nothing is written.
func openPager(cfg *config.Config) (*pager.Pager, *wal.WAL, error) {
	log, err := wal.Open(cfg.WALPath())
	if err != nil {
		return nil, nil, err
	}
	p, err := pager.Open(cfg.DatabasePath(), log, cfg.MaxPages)
	if err != nil {
		log.Close()
		return nil, nil, err
	}
	return p, log, nil
}

func newInspectPagesCmd(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "pages",
		Short: "List every page's header",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, log, err := openPager(cfg())
			if err != nil {
				return err
			}
			defer log.Close()
			defer p.Close()

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Page", "Type", "Table", "Slots", "Free", "LSN"})

			count := p.PageCount()
			for id := primitives.PageID(1); uint64(id) < count; id++ {
				pg, err := p.Read(id)
				if err != nil {
					t.AppendRow(table.Row{id, "unreadable: " + err.Error(), "", "", "", ""})
					continue
				}
				t.AppendRow(table.Row{
					id, pg.Type().String(), pg.TableID(),
					pg.SlotCount(), pg.FreeSpace(), uint64(pg.LSN()),
				})
			}
			t.Render()
			fmt.Fprintf(cmd.OutOrStdout(), "(%d pages, superblock excluded)\n", count-1)
			return nil
		},
	}
}

func newInspectWALCmd(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "wal",
		Short: "List write-ahead log records",
		RunE: func(cmd *cobra.Command, args []string) error {
			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"LSN", "Type", "Page", "Image bytes"})

			var records int
			err := wal.Replay(cfg().WALPath(), 0, func(rec *wal.Record) error {
				records++
				t.AppendRow(table.Row{uint64(rec.LSN), rec.Type.String(), rec.PageID, len(rec.Image)})
				return nil
			})
			t.Render()
			fmt.Fprintf(cmd.OutOrStdout(), "(%d records)\n", records)
			if err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "log ends unreadable: %v\n", err)
			}
			return nil
		},
	}
}

func newInspectCatalogCmd(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "Show every table and index definition",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, log, err := openPager(cfg())
			if err != nil {
				return err
			}
			defer log.Close()
			defer p.Close()

			cat, err := catalog.Load(p)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, tbl := range cat.Tables() {
				cols := make([]string, len(tbl.Columns))
				for i, col := range tbl.Columns {
					cols[i] = col.Name + " " + col.Type.String()
					if col.PrimaryKey {
						cols[i] += " PRIMARY KEY"
					} else if !col.Nullable {
						cols[i] += " NOT NULL"
					}
				}
				fmt.Fprintf(out, "table %s (id %d): %s\n", tbl.Name, tbl.ID, strings.Join(cols, ", "))
				for _, idx := range cat.IndexesFor(tbl.Name) {
					fmt.Fprintf(out, "  index %s on (%s), root page %d\n", idx.Name, idx.Column, idx.Root)
				}
			}
			return nil
		},
	}
}
