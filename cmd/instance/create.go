package instance

import (
	"fmt"

	"craft-keeper/internal/models"
	"craft-keeper/services"

	"github.com/spf13/cobra"
)

var created models.Instance

var createCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create an instance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		inst := created
		inst.Name = args[0]
		return createInstance(services.GetInstanceManager(), inst)
	},
}

func createInstance(im *services.InstanceManager, inst models.Instance) error {
	if err := im.Create(inst); err != nil {
		return err
	}
	fmt.Printf("instance '%s' created at %s\n", inst.Name, im.Dir(inst.Name))
	return nil
}

func init() {
	createCmd.Flags().SortFlags = false
	createCmd.Flags().StringVarP(&created.Version, "version", "v", "", "实例使用的版本")
	createCmd.Flags().StringVar(&created.Java.Path, "java", "", "Java可执行文件")
	createCmd.Flags().StringVar(&created.Java.MinMemory, "min-memory", "", "最小内存，例如 512M")
	createCmd.Flags().StringVar(&created.Java.MaxMemory, "max-memory", "", "最大内存，例如 4G")
	createCmd.Flags().StringVar(&created.Java.Arguments, "args", "", "额外的JVM参数")
	createCmd.Flags().IntVar(&created.Window.Width, "width", 0, "窗口宽度")
	createCmd.Flags().IntVar(&created.Window.Height, "height", 0, "窗口高度")
	createCmd.Flags().BoolVar(&created.Window.StartMaximized, "maximized", false, "以最大化窗口启动")
	createCmd.MarkFlagRequired("version")
	instanceCmd.AddCommand(createCmd)
}
