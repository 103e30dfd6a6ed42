package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"qrwallet/internal/domain"
	"qrwallet/internal/utils"
	"qrwallet/internal/wallet"
)

// WalletResponse is the public view of a wallet. The private key never
// leaves the service.
type WalletResponse struct {
	PublicKey string `json:"public_key"`
	Balance   int64  `json:"balance"`
}

// SendRequest asks for a transfer to a recipient identifier. Amount is not
// validated here; the ledger owns amount preconditions and reports them
// through its own error taxonomy.
type SendRequest struct {
	Recipient string `json:"recipient" binding:"required"`
	Amount    int64  `json:"amount"`
}

// ConfirmRequest finalizes a pending transaction by id.
type ConfirmRequest struct {
	TransactionID string `json:"transaction_id" binding:"required"`
}

// ReceiveRequest carries a scanned QR transport payload.
type ReceiveRequest struct {
	Payload string `json:"payload" binding:"required"`
}

// accountID extracts the authenticated account id set by the JWT middleware.
func accountID(c *gin.Context) (uint, bool) {
	v, exists := c.Get("userID")
	if !exists {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

// invalidateWalletCache drops the cached wallet view and the first pages of
// the cached transaction history after a mutation.
func invalidateWalletCache(c *gin.Context, id uint) {
	rdb, ok := c.MustGet("redisClient").(*redis.Client)
	if !ok {
		return
	}
	ctx := context.Background()
	userKey := "wallet:user:" + strconv.Itoa(int(id))
	txPrefix := "txhistory:user:" + strconv.Itoa(int(id))
	_ = utils.DeleteCache(ctx, rdb, userKey)
	// Simple version: the history cache only ever holds the first few pages
	for i := 1; i <= 5; i++ {
		_ = utils.DeleteCache(ctx, rdb, txPrefix+":page:"+strconv.Itoa(i)+":size:20")
	}
}

// CreateWalletHandler creates the account's wallet with a fresh identity.
// An account that already has one gets a conflict, never a silent reset.
func CreateWalletHandler(svc *wallet.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := accountID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		w, err := svc.CreateWallet(c.Request.Context(), id)
		if err != nil {
			status, msg := statusFor(err)
			logrus.WithFields(logrus.Fields{
				"account_id": id,
				"error":      err.Error(),
			}).Error("Failed to create wallet")
			c.JSON(status, gin.H{"error": msg})
			return
		}
		invalidateWalletCache(c, id)
		c.JSON(http.StatusCreated, gin.H{
			"message": "Wallet created",
			"wallet":  WalletResponse{PublicKey: w.PublicKey, Balance: w.Balance},
		})
	}
}

// GetWalletHandler returns wallet info for the authenticated account.
func GetWalletHandler(svc *wallet.Service, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := accountID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		ctx := context.Background()
		cacheKey := "wallet:user:" + strconv.Itoa(int(id))
		var cached WalletResponse
		found, err := utils.GetCache(ctx, rdb, cacheKey, &cached)
		if err == nil && found {
			c.JSON(http.StatusOK, gin.H{"wallet": cached, "cached": true})
			return
		}
		w, err := svc.Wallet(c.Request.Context(), id)
		if err != nil {
			status, msg := statusFor(err)
			c.JSON(status, gin.H{"error": msg})
			return
		}
		resp := WalletResponse{PublicKey: w.PublicKey, Balance: w.Balance}
		_ = utils.SetCache(ctx, rdb, cacheKey, resp, 60*time.Second)
		c.JSON(http.StatusOK, gin.H{"wallet": resp, "cached": false})
	}
}

// IdentityHandler returns the exported public key string, the text a client
// renders as a QR symbol to share the wallet's address with a sender.
func IdentityHandler(svc *wallet.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := accountID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		pub, err := svc.Identity(c.Request.Context(), id)
		if err != nil {
			status, msg := statusFor(err)
			c.JSON(status, gin.H{"error": msg})
			return
		}
		c.JSON(http.StatusOK, gin.H{"public_key": pub})
	}
}

// SendHandler creates a signed pending transaction and returns it together
// with the transport payload to embed in a QR symbol.
func SendHandler(svc *wallet.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := accountID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req SendRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		tx, payload, err := svc.Send(c.Request.Context(), id, req.Recipient, req.Amount)
		if err != nil {
			status, msg := statusFor(err)
			logrus.WithFields(logrus.Fields{
				"account_id": id,
				"amount":     req.Amount,
				"error":      err.Error(),
			}).Error("Send failed")
			c.JSON(status, gin.H{"error": msg})
			return
		}
		invalidateWalletCache(c, id)
		c.JSON(http.StatusCreated, gin.H{"transaction": tx, "payload": payload})
	}
}

// ConfirmHandler moves a pending transaction to settled.
func ConfirmHandler(svc *wallet.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := accountID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req ConfirmRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		tx, err := svc.Confirm(c.Request.Context(), id, req.TransactionID)
		if err != nil {
			status, msg := statusFor(err)
			c.JSON(status, gin.H{"error": msg})
			return
		}
		invalidateWalletCache(c, id)
		c.JSON(http.StatusOK, gin.H{"transaction": tx})
	}
}

// ReceiveHandler credits a transaction scanned from another device's QR
// payload and settles it directly.
func ReceiveHandler(svc *wallet.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := accountID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req ReceiveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		tx, err := svc.Receive(c.Request.Context(), id, req.Payload)
		if err != nil {
			status, msg := statusFor(err)
			logrus.WithFields(logrus.Fields{
				"account_id": id,
				"error":      err.Error(),
			}).Error("Receive failed")
			c.JSON(status, gin.H{"error": msg})
			return
		}
		invalidateWalletCache(c, id)
		c.JSON(http.StatusOK, gin.H{"transaction": tx})
	}
}

// TransactionsHandler returns the pending collection in full plus a
// paginated slice of settled history, both most recent first.
func TransactionsHandler(svc *wallet.Service, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := accountID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		page := 1
		pageSize := 20
		if p := c.Query("page"); p != "" {
			if v, err := strconv.Atoi(p); err == nil && v > 0 {
				page = v
			}
		}
		if ps := c.Query("page_size"); ps != "" {
			if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
				pageSize = v
			}
		}
		cacheKey := "txhistory:user:" + strconv.Itoa(int(id)) +
			":page:" + strconv.Itoa(page) + ":size:" + strconv.Itoa(pageSize)
		ctx := context.Background()
		var cached struct {
			Pending    []domain.Transaction `json:"pending"`
			Settled    []domain.Transaction `json:"settled"`
			Page       int                  `json:"page"`
			PageSize   int                  `json:"page_size"`
			Total      int                  `json:"total"`
			TotalPages int                  `json:"total_pages"`
		}
		found, err := utils.GetCache(ctx, rdb, cacheKey, &cached)
		if err == nil && found {
			c.JSON(http.StatusOK, gin.H{
				"pending":     cached.Pending,
				"settled":     cached.Settled,
				"page":        cached.Page,
				"page_size":   cached.PageSize,
				"total":       cached.Total,
				"total_pages": cached.TotalPages,
				"cached":      true,
			})
			return
		}
		pending, settled, err := svc.Transactions(c.Request.Context(), id)
		if err != nil {
			status, msg := statusFor(err)
			c.JSON(status, gin.H{"error": msg})
			return
		}
		total := len(settled)
		totalPages := (total + pageSize - 1) / pageSize
		start := (page - 1) * pageSize
		if start > total {
			start = total
		}
		end := start + pageSize
		if end > total {
			end = total
		}
		resp := gin.H{
			"pending":     pending,
			"settled":     settled[start:end],
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": totalPages,
			"cached":      false,
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, resp, 60*time.Second)
		c.JSON(http.StatusOK, resp)
	}
}
