// ABOUTME: Web UI CLI command
// ABOUTME: Serves the read-only project and budget pages
package cli

import (
	"database/sql"
	"flag"
	"fmt"

	"github.com/harperreed/memoire/web"
)

// WebCommand starts the web UI on the given port.
func WebCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("web", flag.ExitOnError)
	port := fs.Int("port", 8080, "Port to listen on")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *port <= 0 || *port > 65535 {
		return fmt.Errorf("invalid port: %d", *port)
	}

	server, err := web.NewServer(database)
	if err != nil {
		return err
	}
	return server.Start(*port)
}
