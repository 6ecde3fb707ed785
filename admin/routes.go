package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/txlogd/txlog/archive"
	"github.com/txlogd/txlog/ledger"
	"github.com/txlogd/txlog/offload"
)

// Dashboard holds the read-only collaborators the admin surface reports
// on. Nothing here mutates engine state; every handler only reads through
// to the owning package's own accessors.
type Dashboard struct {
	log     *ledger.Log
	archive *archive.Manager
	job     *offload.Job
}

// NewDashboard constructs a Dashboard bound to the engine's core
// components.
func NewDashboard(l *ledger.Log, a *archive.Manager, j *offload.Job) *Dashboard {
	return &Dashboard{log: l, archive: a, job: j}
}

// AddRoutes registers the dashboard's endpoints under /v1 on e.
func (d *Dashboard) AddRoutes(e *gin.Engine) {
	v1 := e.Group("/v1")
	{
		v1.GET("/log", d.logStatus)
		v1.GET("/archive/shards", d.archiveShards)
		v1.GET("/archive/offload", d.offloadStatus)
		v1.GET("/prepared", d.preparedStatus)
	}
}

func (d *Dashboard) logStatus(c *gin.Context) {
	respond(c, http.StatusOK, gin.H{
		"log_length": d.log.LogLength(),
		"hot_len":    d.log.HotLen(),
	})
}

type shardStatus struct {
	ShardID   string `json:"shard_id"`
	Start     uint64 `json:"start"`
	End       uint64 `json:"end"`
	Empty     bool   `json:"empty"`
	BytesUsed uint64 `json:"bytes_used"`
	Status    string `json:"status"`
}

func (d *Dashboard) archiveShards(c *gin.Context) {
	shards := d.archive.Shards()
	out := make([]shardStatus, len(shards))
	for i, sh := range shards {
		out[i] = shardStatus{
			ShardID:   sh.Address.String(),
			Start:     sh.IDRangeStart,
			End:       sh.IDRangeEnd,
			Empty:     sh.Empty(),
			BytesUsed: sh.BytesUsed,
			Status:    sh.Status.String(),
		}
	}
	respond(c, http.StatusOK, out)
}

func (d *Dashboard) offloadStatus(c *gin.Context) {
	halted, haltErr := d.job.Halted()
	data := gin.H{"halted": halted}
	if haltErr != nil {
		data["error"] = haltErr.Error()
	}
	respond(c, http.StatusOK, data)
}

func (d *Dashboard) preparedStatus(c *gin.Context) {
	respond(c, http.StatusOK, gin.H{
		"prepared_count": d.log.PreparedCount(),
	})
}
