package cmd

import (
	_ "furnace/cmd/php"
	_ "furnace/cmd/recipe"
	_ "furnace/cmd/root"
	_ "furnace/cmd/server"
	_ "furnace/cmd/service"
)
