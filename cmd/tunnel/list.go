package tunnel

import (
	"fmt"
	"time"

	"bridge-keeper/internal/models"
	"bridge-keeper/internal/utils"
	"bridge-keeper/services"

	"github.com/iancoleman/orderedmap"
	"github.com/spf13/cobra"
)

var (
	listApp  string
	listPort int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all known tunnel sessions",
	Run: func(cmd *cobra.Command, args []string) {
		if err := listSessions(); err != nil {
			fmt.Println(err)
		}
	},
}

/**
 * List session information with filtering
 * @returns {error} Returns error if listing fails, nil on success
 * @description
 * - Lists known tunnel sessions, filtered by app name and/or port
 * - Uses utils.PrintFormat for formatted output
 */
func listSessions() error {
	tunnelSvc := services.GetTunnelManager()
	sessions := tunnelSvc.ListSessions()

	var filtered []*models.TunnelSession
	for _, session := range sessions {
		if listApp != "" && session.Name != listApp {
			continue
		}
		if listPort != 0 && session.LocalPort != listPort {
			continue
		}
		filtered = append(filtered, session)
	}

	if len(filtered) == 0 {
		fmt.Println("No tunnel sessions")
		return nil
	}

	return listAllSessions(filtered)
}

/**
 *	Fields displayed in list format
 */
type Session_Columns struct {
	Name      string `json:"name"`
	LocalPort int    `json:"local_port"`
	PublicURL string `json:"public_url"`
	Status    string `json:"status"`
	Pid       int    `json:"pid"`
	Adopted   bool   `json:"adopted"`
	Healthy   string `json:"healthy"`
	StartTime string `json:"start_time"`
}

func listAllSessions(sessions []*models.TunnelSession) error {
	var dataList []*orderedmap.OrderedMap
	for _, session := range sessions {
		row := Session_Columns{}
		row.Name = session.Name
		row.LocalPort = session.LocalPort
		row.PublicURL = session.PublicURL
		row.Status = string(session.Status)
		row.Pid = session.Pid
		row.Adopted = session.Adopted
		row.StartTime = session.StartedAt.Format(time.RFC3339)

		if session.Adopted {
			row.Healthy = "-"
		} else if running, err := utils.IsProcessRunning(row.Pid); err == nil && running {
			row.Healthy = "Y"
		} else {
			row.Healthy = "N"
		}

		recordMap, err := utils.StructToOrderedMap(row)
		if err != nil {
			continue
		}
		dataList = append(dataList, recordMap)
	}

	utils.PrintFormat(dataList)
	return nil
}

func init() {
	listCmd.Flags().SortFlags = false
	listCmd.Flags().StringVarP(&listApp, "app", "a", "", "App name")
	listCmd.Flags().IntVarP(&listPort, "port", "p", 0, "Port number")

	tunnelCmd.AddCommand(listCmd)
}
