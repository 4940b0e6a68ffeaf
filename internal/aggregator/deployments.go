package aggregator

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/symmetryops/pulse-core/internal/canonical"
	"github.com/symmetryops/pulse-core/internal/models"
	"github.com/symmetryops/pulse-core/internal/timerange"
	"github.com/symmetryops/pulse-core/pkg/cache"
)

// App setting keys carrying deploy provenance, checked in order.
var imageTagSettings = []string{"IMAGE_TAG", "DOCKER_CUSTOM_IMAGE_NAME", "RELEASE"}

// GetDeploymentMetadata lists the deployed apps with canonical names, state
// and image provenance, plus a running/stopped summary.
func (a *Aggregator) GetDeploymentMetadata(ctx context.Context, environment, rng string, bypass bool) (*models.DeploymentMetadata, error) {
	tr := timerange.Parse(rng)
	key := cache.Key(environment, tr.Raw)
	if hit, ok := a.deployCache.Check(key, bypass); ok {
		recordLookup("deployments", true, false)
		return hit, nil
	}
	recordLookup("deployments", false, bypass)

	ctx, cancel := context.WithTimeout(ctx, a.queryTimeout)
	defer cancel()

	b := newBatch("deployments", a.logger)
	b.ran()

	apps, err := a.backends.AppResources.ListApps(ctx, environment)
	if err != nil {
		b.degrade("app_resources", err)
		if batchErr := b.err(); batchErr != nil {
			return nil, batchErr
		}
	}

	records := make([]models.DeploymentRecord, 0, len(apps))
	running, stopped := 0, 0
	for _, app := range apps {
		record := models.DeploymentRecord{
			Name:     canonical.Canonicalize(app.Name),
			RawName:  app.Name,
			State:    app.State,
			HostName: app.HostName,
		}
		for _, key := range imageTagSettings {
			if tag := app.AppSettings[key]; tag != "" {
				record.ImageTag = tag
				break
			}
		}
		if strings.EqualFold(app.State, "running") {
			running++
		} else {
			stopped++
		}
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Name < records[j].Name })

	payload := &models.DeploymentMetadata{
		GeneratedAt: time.Now().UTC(),
		Environment: environment,
		Range:       tr.Raw,
		Apps:        records,
		Running:     running,
		Stopped:     stopped,
	}

	return a.deployCache.Set(key, payload), nil
}
