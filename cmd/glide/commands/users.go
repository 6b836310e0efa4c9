package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/glide/internal/cli/output"
	"github.com/marmos91/glide/internal/cli/timeutil"
)

var (
	usersOutput  string
	usersAPIPort int
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "List connected users",
	Long: `List the users currently connected to the glide server.

This command queries the admin API and displays each connected handle, its
address, connection time and the number of offers waiting for it.

Examples:
  # List connected users
  glide users

  # Query a server with a custom API port
  glide users --api-port 9080

  # Output as JSON
  glide users --output json`,
	RunE: runUsers,
}

func init() {
	usersCmd.Flags().IntVar(&usersAPIPort, "api-port", 8080, "API server port")
	usersCmd.Flags().StringVarP(&usersOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

// userEntry mirrors one user record from the admin API.
type userEntry struct {
	Handle        string `json:"handle" yaml:"handle"`
	Addr          string `json:"addr" yaml:"addr"`
	ConnectedAt   string `json:"connected_at" yaml:"connected_at"`
	PendingOffers int    `json:"pending_offers" yaml:"pending_offers"`
}

// usersResponse mirrors the admin API users payload.
type usersResponse struct {
	Status string `json:"status"`
	Data   struct {
		Count int         `json:"count"`
		Users []userEntry `json:"users"`
	} `json:"data"`
	Error string `json:"error,omitempty"`
}

func runUsers(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(usersOutput)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("http://localhost:%d/api/v1/users", usersAPIPort)
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("failed to reach server at %s: %w\n\nIs the server running?", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var body usersResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("invalid response from server: %w", err)
	}
	if body.Status != "ok" {
		return fmt.Errorf("server returned an error: %s", body.Error)
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, body.Data.Users)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, body.Data.Users)
	default:
		return printUsersTable(body.Data.Users)
	}
}

func printUsersTable(users []userEntry) error {
	if len(users) == 0 {
		fmt.Println("No users connected")
		return nil
	}

	table := output.NewTableData("HANDLE", "ADDRESS", "CONNECTED", "PENDING OFFERS")
	for _, u := range users {
		table.AddRow(
			u.Handle,
			u.Addr,
			timeutil.FormatTime(u.ConnectedAt),
			strconv.Itoa(u.PendingOffers),
		)
	}
	return output.PrintTable(os.Stdout, table)
}
