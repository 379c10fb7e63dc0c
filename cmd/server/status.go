package server

import (
	"context"
	"fmt"
	"time"

	"craft-keeper/cmd/root"
	"craft-keeper/internal/config"
	"craft-keeper/internal/models"
	"craft-keeper/internal/rpc"
	"craft-keeper/internal/utils"

	"github.com/iancoleman/orderedmap"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of a running server",
	Long:  "Query a running craft-keeper server over its unix socket (or tcp address) and show health, installs and running games",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := rpc.NewHTTPClient(rpc.DefaultHTTPConfig(config.App()))
		defer client.Close()
		return showStatus(cmd.Context(), client)
	},
}

type Game_Columns struct {
	Pid     int    `json:"pid"`
	Version string `json:"version"`
	Status  string `json:"status"`
	Started string `json:"started"`
	WorkDir string `json:"workDir"`
}

type Install_Columns struct {
	ID       string `json:"id"`
	Version  string `json:"version"`
	Status   string `json:"status"`
	Progress string `json:"progress"`
}

/**
 * Print health, installs and games of a running server
 * @param {*rpc.HTTPClient} client - Client bound to the server
 * @returns {error} Connection or API error
 */
func showStatus(ctx context.Context, client *rpc.HTTPClient) error {
	var health models.HealthResponse
	if err := client.Get(ctx, "/healthz", nil, &health); err != nil {
		return fmt.Errorf("server is not reachable: %w", err)
	}
	summary, _ := utils.StructToOrderedMap(health.Metrics)
	summary.Set("status", health.Status)
	summary.Set("version", health.Version)
	summary.Set("uptime", health.Uptime)
	utils.PrintFormat([]*orderedmap.OrderedMap{summary})

	var installs []models.InstallDetail
	if err := client.Get(ctx, rpc.APIPrefix+"/installs", nil, &installs); err != nil {
		return err
	}
	if len(installs) > 0 {
		var dataList []*orderedmap.OrderedMap
		for _, d := range installs {
			recordMap, _ := utils.StructToOrderedMap(Install_Columns{
				ID:       d.ID,
				Version:  d.VersionID,
				Status:   string(d.Status),
				Progress: fmt.Sprintf("%d/%d", d.Completed+d.Skipped+d.Failed, d.Tasks),
			})
			dataList = append(dataList, recordMap)
		}
		fmt.Println()
		utils.PrintFormat(dataList)
	}

	var games []models.ProcessDetail
	if err := client.Get(ctx, rpc.APIPrefix+"/games", nil, &games); err != nil {
		return err
	}
	if len(games) > 0 {
		var dataList []*orderedmap.OrderedMap
		for _, g := range games {
			recordMap, _ := utils.StructToOrderedMap(Game_Columns{
				Pid:     g.Pid,
				Version: g.VersionID,
				Status:  string(g.Status),
				Started: g.StartTime.Local().Format(time.DateTime),
				WorkDir: g.WorkDir,
			})
			dataList = append(dataList, recordMap)
		}
		fmt.Println()
		utils.PrintFormat(dataList)
	}
	return nil
}

func init() {
	root.RootCmd.AddCommand(statusCmd)
}
