package poller

import (
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"

	"swrgateway/pkg/apis"
	"swrgateway/pkg/apis/response"
	"swrgateway/pkg/storage"
	"swrgateway/pkg/swrnet"
)

// ResponseModel wraps list responses of the read surface.
type ResponseModel struct {
	Devices  interface{} `json:"devices,omitempty"`
	Stats    interface{} `json:"stats,omitempty"`
	Comments interface{} `json:"comments,omitempty"`
	Polling  *bool       `json:"polling,omitempty"`
}

func InstallHandler(group *gin.RouterGroup, mgr *Manager, store storage.Storage) {
	group.GET("/devices", listDevices(mgr))
	group.GET("/stats", queryStats(store))
	group.GET("/comments", queryComments(store))
}

func listDevices(mgr *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		exploded, _ := strconv.ParseBool(c.Query(apis.Exploded))
		devices := mgr.Devices()
		if !exploded {
			folded := make([]*swrnet.Device, 0, len(devices))
			for _, d := range devices {
				fd := *d
				fd.Channels = nil
				fd.ChannelOrder = nil
				folded = append(folded, &fd)
			}
			devices = folded
		}
		polling := mgr.Polling()
		c.JSON(http.StatusOK, &ResponseModel{Devices: devices, Polling: &polling})
	}
}

func queryStats(store storage.Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		start, end, ok := timeRange(c)
		if !ok {
			return
		}
		rows, err := store.QueryStats(start, end)
		if err != nil {
			klog.V(2).InfoS("Failed to query stats", "err", err)
			c.JSON(http.StatusInternalServerError, response.NewMultiError(response.ErrStorageQuery))
			return
		}
		if v := c.Query(apis.Addr); len(v) > 0 {
			addr, err := strconv.Atoi(v)
			if err != nil {
				c.JSON(http.StatusBadRequest, response.NewMultiError(response.ErrMalformedAddr(v)))
				return
			}
			filtered := make([]*storage.StatsRow, 0, len(rows))
			for _, row := range rows {
				if row.Addr == addr {
					filtered = append(filtered, row)
				}
			}
			rows = filtered
		}

		switch c.DefaultQuery(apis.Format, apis.FormatJSON) {
		case apis.FormatJSON:
			c.JSON(http.StatusOK, &ResponseModel{Stats: rows})
		case apis.FormatCSV:
			writeStatsCSV(c, rows)
		default:
			c.JSON(http.StatusBadRequest, response.NewMultiError(response.ErrUnknownFormat(c.Query(apis.Format))))
		}
	}
}

// writeStatsCSV renders the rows the way the graphing consumer reads
// them: stamp, addr, then the stats columns in table order, blank when a
// channel is absent.
func writeStatsCSV(c *gin.Context, rows []*storage.StatsRow) {
	c.Header("Content-Type", "text/csv")
	w := csv.NewWriter(c.Writer)
	header := append([]string{"stamp", "addr"}, storage.ChannelColumns...)
	_ = w.Write(header)
	for _, row := range rows {
		record := make([]string, 0, len(header))
		record = append(record, row.Stamp, strconv.Itoa(row.Addr))
		for _, name := range storage.ChannelColumns {
			if v, ok := row.Values[name]; ok {
				record = append(record, strconv.FormatFloat(v, 'f', -1, 64))
			} else {
				record = append(record, "")
			}
		}
		_ = w.Write(record)
	}
	w.Flush()
}

func queryComments(store storage.Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		start, end, ok := timeRange(c)
		if !ok {
			return
		}
		comments, err := store.QueryComments(start, end)
		if err != nil {
			klog.V(2).InfoS("Failed to query comments", "err", err)
			c.JSON(http.StatusInternalServerError, response.NewMultiError(response.ErrStorageQuery))
			return
		}
		c.JSON(http.StatusOK, &ResponseModel{Comments: comments})
	}
}

func timeRange(c *gin.Context) (time.Time, time.Time, bool) {
	end := time.Now()
	start := end.Add(-24 * time.Hour)
	if v := c.Query(apis.Start); len(v) > 0 {
		t, err := parseTimeParam(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.NewMultiError(response.ErrMalformedTime(apis.Start)))
			return start, end, false
		}
		start = t
	}
	if v := c.Query(apis.End); len(v) > 0 {
		t, err := parseTimeParam(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.NewMultiError(response.ErrMalformedTime(apis.End)))
			return start, end, false
		}
		end = t
	}
	return start, end, true
}

func parseTimeParam(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return storage.ParseStamp(v)
}
