package api

import (
	"context"
	"io"
	"strconv"

	"casino_backoffice/internal/bonus"
	"casino_backoffice/internal/game"
	"casino_backoffice/internal/notify"
	"casino_backoffice/internal/player"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type Router struct {
	players   *player.Service
	bonuses   *bonus.Service
	games     game.GameRepository
	hub       *notify.Hub
	jwtSecret string
}

func NewRouter(players *player.Service, bonuses *bonus.Service, games game.GameRepository, hub *notify.Hub, jwtSecret string) *Router {
	return &Router{players: players, bonuses: bonuses, games: games, hub: hub, jwtSecret: jwtSecret}
}

func (rt *Router) Register(r *gin.Engine) {
	r.POST("/players", rt.registerPlayer)
	r.GET("/players", rt.listPlayers)
	r.GET("/players/top", rt.topPlayers)
	r.GET("/players/:player_id", rt.getPlayer)
	r.GET("/players/:player_id/claims", rt.listPlayerClaims)
	r.POST("/players/:player_id/deposits", rt.recordDeposit)
	r.POST("/players/:player_id/withdrawals", rt.recordWithdrawal)
	r.POST("/players/:player_id/logins", rt.recordLogin)

	r.GET("/games", rt.listGames)

	r.GET("/bonuses", rt.listBonuses)
	r.GET("/bonuses/active", rt.listActiveBonuses)
	r.GET("/bonuses/:bonus_id", rt.getBonus)

	r.POST("/claims", rt.claimBonus)
	r.GET("/claims/:claim_id", rt.getClaim)
	r.GET("/claims/:claim_id/progress", rt.claimProgress)

	r.POST("/bets", rt.processBet)

	r.GET("/stream/players/:player_id", rt.streamPlayer)
	r.GET("/stream/games/:game_id", rt.streamGame)

	admin := r.Group("/admin", AdminAuth(rt.jwtSecret))
	admin.POST("/games", rt.createGame)
	admin.POST("/bonuses", rt.createBonus)
	admin.POST("/bonuses/:bonus_id/activate", rt.setBonusActive(true))
	admin.POST("/bonuses/:bonus_id/deactivate", rt.setBonusActive(false))
	admin.POST("/claims/:claim_id/activate", rt.transitionClaim(bonus.ClaimStatusActive))
	admin.POST("/claims/:claim_id/cancel", rt.transitionClaim(bonus.ClaimStatusCancelled))
	admin.POST("/claims/:claim_id/forfeit", rt.transitionClaim(bonus.ClaimStatusForfeited))
	admin.POST("/claims/expire-overdue", rt.expireOverdueClaims)
	admin.GET("/stream", rt.streamAdmin)
}

func (rt *Router) registerPlayer(c *gin.Context) {
	var req player.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	p, err := rt.players.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, p)
}

func (rt *Router) listPlayers(c *gin.Context) {
	players, err := rt.players.ListPlayers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, players)
}

func (rt *Router) getPlayer(c *gin.Context) {
	p, err := rt.players.GetPlayer(c.Request.Context(), c.Param("player_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, p)
}

func (rt *Router) topPlayers(c *gin.Context) {
	count, err := strconv.Atoi(c.DefaultQuery("count", "10"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	minDeposit, err := decimal.NewFromString(c.DefaultQuery("minimum_deposit", "0"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	players, err := rt.players.TopPlayers(c.Request.Context(), count, minDeposit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, players)
}

func (rt *Router) recordDeposit(c *gin.Context) {
	rt.recordLedger(c, rt.players.Deposit)
}

func (rt *Router) recordWithdrawal(c *gin.Context) {
	rt.recordLedger(c, rt.players.Withdraw)
}

func (rt *Router) recordLedger(c *gin.Context, apply func(ctx context.Context, req player.LedgerRequest) error) {
	var req player.LedgerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	req.PlayerID = c.Param("player_id")
	if err := apply(c.Request.Context(), req); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, nil)
}

func (rt *Router) recordLogin(c *gin.Context) {
	if err := rt.players.RecordLogin(c.Request.Context(), c.Param("player_id")); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, nil)
}

func (rt *Router) listGames(c *gin.Context) {
	games, err := rt.games.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, games)
}

func (rt *Router) createGame(c *gin.Context) {
	var g game.Game
	if err := c.ShouldBindJSON(&g); err != nil {
		respondBadRequest(c, err)
		return
	}
	if err := rt.games.Create(c.Request.Context(), &g); err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, g)
}

func (rt *Router) listBonuses(c *gin.Context) {
	bonuses, err := rt.bonuses.ListBonuses(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, bonuses)
}

func (rt *Router) listActiveBonuses(c *gin.Context) {
	bonuses, err := rt.bonuses.ListActiveBonuses(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, bonuses)
}

func (rt *Router) getBonus(c *gin.Context) {
	b, err := rt.bonuses.GetBonus(c.Request.Context(), c.Param("bonus_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, b)
}

func (rt *Router) createBonus(c *gin.Context) {
	var b bonus.Bonus
	if err := c.ShouldBindJSON(&b); err != nil {
		respondBadRequest(c, err)
		return
	}
	if err := rt.bonuses.CreateBonus(c.Request.Context(), &b); err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, b)
}

func (rt *Router) setBonusActive(active bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := rt.bonuses.SetBonusActive(c.Request.Context(), c.Param("bonus_id"), active); err != nil {
			respondError(c, err)
			return
		}
		respondOK(c, nil)
	}
}

type claimRequest struct {
	PlayerID string `json:"player_id"`
	BonusID  string `json:"bonus_id"`
}

func (rt *Router) claimBonus(c *gin.Context) {
	var req claimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	claim, err := rt.bonuses.ClaimBonus(c.Request.Context(), req.PlayerID, req.BonusID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, claim)
}

func (rt *Router) getClaim(c *gin.Context) {
	claim, err := rt.bonuses.GetClaim(c.Request.Context(), c.Param("claim_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, claim)
}

func (rt *Router) listPlayerClaims(c *gin.Context) {
	claims, err := rt.bonuses.ListClaimsByPlayer(c.Request.Context(), c.Param("player_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, claims)
}

func (rt *Router) claimProgress(c *gin.Context) {
	progress, err := rt.bonuses.GetWageringProgress(c.Request.Context(), "", c.Param("claim_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, progress)
}

func (rt *Router) transitionClaim(toStatus string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := rt.bonuses.TransitionClaim(c.Request.Context(), c.Param("claim_id"), toStatus); err != nil {
			respondError(c, err)
			return
		}
		respondOK(c, nil)
	}
}

func (rt *Router) expireOverdueClaims(c *gin.Context) {
	expired, err := rt.bonuses.ExpireOverdueClaims(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"expired": expired})
}

func (rt *Router) processBet(c *gin.Context) {
	var bet bonus.BetEvent
	if err := c.ShouldBindJSON(&bet); err != nil {
		respondBadRequest(c, err)
		return
	}
	if err := rt.bonuses.ProcessBetWagering(c.Request.Context(), bet); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, nil)
}

func (rt *Router) streamPlayer(c *gin.Context) {
	rt.stream(c, rt.hub.JoinPlayerGroup(c.Param("player_id")))
}

func (rt *Router) streamGame(c *gin.Context) {
	rt.stream(c, rt.hub.JoinGameGroup(c.Param("game_id")))
}

func (rt *Router) streamAdmin(c *gin.Context) {
	rt.stream(c, rt.hub.JoinAdminGroup())
}

// stream pushes hub notifications to the client as server-sent events until
// the connection drops; membership is cleaned up on disconnect.
func (rt *Router) stream(c *gin.Context, sub *notify.Subscription) {
	defer sub.Leave()

	c.Stream(func(w io.Writer) bool {
		select {
		case n, ok := <-sub.Receive():
			if !ok {
				return false
			}
			c.SSEvent(n.Type, n)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
