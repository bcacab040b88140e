package public

import (
	"github.com/pocketshop-sync/internal/http/response"

	"github.com/gin-gonic/gin"
)

// TriggerSync 手动触发一轮同步排空
func (h *Handler) TriggerSync(c *gin.Context) {
	h.SyncEngine.Trigger("manual")
	response.Success(c, gin.H{"triggered": true})
}

// GetSyncStatus 同步状态：连接状态、积压数量与最近一轮排空结果
func (h *Handler) GetSyncStatus(c *gin.Context) {
	pending, err := h.OutboxRepo.CountPending()
	if err != nil {
		respondError(c, response.CodeInternal, "local storage unavailable", err)
		return
	}
	quarantined, err := h.OutboxRepo.CountQuarantined()
	if err != nil {
		respondError(c, response.CodeInternal, "local storage unavailable", err)
		return
	}

	response.Success(c, gin.H{
		"online":        h.Connectivity.Online(),
		"pending":       pending,
		"quarantined":   quarantined,
		"last_progress": h.SyncEngine.LastProgress(),
	})
}
