package root

import (
	"github.com/spf13/cobra"
)

// Build information, set with -ldflags "-X furnace/cmd/root.SoftwareVer=..."
var SoftwareVer = "dev"
var BuildTime = ""
var BuildTag = ""
var BuildCommitId = ""

// Local disables forwarding to a running `furnace server`
var Local bool

var RootCmd = &cobra.Command{
	Use:   "furnace",
	Short: "本地PHP开发环境管理器",
	Long: `furnace registers PHP projects as recipes and keeps nginx/apache vhosts,
php-fpm pools and the local resolver in sync with them`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	RootCmd.PersistentFlags().BoolVar(&Local, "local", false, "Run in this process even when furnace server is running")
}
