package artifact

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"craft-keeper/internal/cache"
	"craft-keeper/internal/config"
	"craft-keeper/internal/utils"

	"github.com/iancoleman/orderedmap"
	"github.com/spf13/cobra"
)

var (
	cachePrefix  string
	cacheCompact bool
	cacheForget  []string
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or maintain the verified file index",
	Long:  "List the verified file index of the cache root. --forget drops entries so the files are verified again, --compact rewrites the index without tombstones",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return manageCache()
	},
}

type Entry_Columns struct {
	Path     string `json:"path"`
	SHA1     string `json:"sha1"`
	Size     string `json:"size"`
	Verified string `json:"verified"`
}

func manageCache() error {
	store, err := cache.Open(config.App().Cache.Root)
	if err != nil {
		return err
	}
	defer store.Close()

	for _, p := range cacheForget {
		if err := store.Forget(p); err != nil {
			return err
		}
		fmt.Printf("forgot %s\n", p)
	}
	if cacheCompact {
		if err := store.Compact(); err != nil {
			return err
		}
		fmt.Printf("index compacted: %d entries\n", store.Len())
	}
	if len(cacheForget) > 0 || cacheCompact {
		return nil
	}

	entries := store.Entries()
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	var dataList []*orderedmap.OrderedMap
	var total int64
	for _, e := range entries {
		if cachePrefix != "" && !strings.HasPrefix(e.Path, cachePrefix) {
			continue
		}
		total += e.Size
		recordMap, _ := utils.StructToOrderedMap(Entry_Columns{
			Path:     e.Path,
			SHA1:     e.SHA1,
			Size:     utils.FormatBytes(e.Size),
			Verified: e.VerifiedAt.Local().Format(time.DateTime),
		})
		dataList = append(dataList, recordMap)
	}
	if len(dataList) == 0 {
		fmt.Println("No verified files")
		return nil
	}
	utils.PrintFormat(dataList)
	fmt.Printf("%d files, %s under %s\n", len(dataList), utils.FormatBytes(total), store.Root())
	return nil
}

func init() {
	cacheCmd.Flags().SortFlags = false
	cacheCmd.Flags().StringVarP(&cachePrefix, "prefix", "p", "", "只显示该前缀下的文件，例如 libraries/")
	cacheCmd.Flags().StringSliceVar(&cacheForget, "forget", nil, "从索引中移除的路径")
	cacheCmd.Flags().BoolVar(&cacheCompact, "compact", false, "压缩索引文件")
	artifactCmd.AddCommand(cacheCmd)
}
