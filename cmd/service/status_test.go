package service

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"furnace/internal/models"
)

func TestPrintStatus(t *testing.T) {
	st := &models.SystemStatus{
		Recipes: []models.RecipeStatus{
			{
				Recipe:     models.Recipe{Name: "blog", Path: "/srv/blog", PHPVersion: "8.3", ServeWith: models.BackendNginx, Site: "blog.test"},
				ConfPath:   "/home/dev/.furnace/nginx/servers/blog.conf",
				Rendered:   true,
				Drifted:    true,
				Diff:       "-listen 8080;\n+listen 80;\n",
				PHPRunning: true,
			},
			{
				Recipe: models.Recipe{Name: "shop", Path: "/srv/shop", PHPVersion: models.UnknownPHPVersion, ServeWith: models.BackendApache, Site: "shop.test"},
			},
		},
		Runtimes: []models.Runtime{{Version: "8.3", State: models.RuntimeRunning, SocketPath: "/tmp/php-fpm.sock"}},
		Backends: []models.BackendStatus{
			{Kind: models.BackendApache, Status: models.StatusMissing, Recipes: 1},
			{Kind: models.BackendNginx, Status: models.StatusRunning, Installed: true, Recipes: 1},
		},
	}

	var buf bytes.Buffer
	printStatus(&buf, st, false)
	out := buf.String()
	assert.Contains(t, out, "blog.test")
	assert.Contains(t, out, "drifted")
	assert.Contains(t, out, "missing")
	assert.Contains(t, out, "/tmp/php-fpm.sock")
	assert.NotContains(t, out, "+listen 80;")

	buf.Reset()
	printStatus(&buf, st, true)
	assert.Contains(t, buf.String(), "--- /home/dev/.furnace/nginx/servers/blog.conf\n-listen 8080;\n+listen 80;\n")
}

func TestConfState(t *testing.T) {
	assert.Equal(t, "missing", confState(models.RecipeStatus{}))
	assert.Equal(t, "drifted", confState(models.RecipeStatus{Rendered: true, Drifted: true}))
	assert.Equal(t, "ok", confState(models.RecipeStatus{Rendered: true}))
}
