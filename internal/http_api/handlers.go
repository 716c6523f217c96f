package http_api

import (
	"net/http"
	"strconv"

	"github.com/core-coin/successio/internal/models"
	"github.com/gin-gonic/gin"
)

const (
	ownerKey             = "owner_id"
	defaultActivityLimit = 50
)

// CreateVaultRequest represents the JSON body for vault creation
type CreateVaultRequest struct {
	Name                     string `json:"name" binding:"required"`
	Description              string `json:"description"`
	OwnerEmail               string `json:"owner_email" binding:"required,email"`
	Tier                     string `json:"tier" binding:"required,oneof=essential premium"`
	InactivityDays           int    `json:"inactivity_days" binding:"required"`
	DistributionMethod       string `json:"distribution_method" binding:"omitempty,oneof=automatic manual"`
	RequiresGuardianApproval bool   `json:"requires_guardian_approval"`
}

// TierRequest represents the JSON body for a tier change
type TierRequest struct {
	Tier string `json:"tier" binding:"required,oneof=essential premium"`
}

// requireOwner rejects requests without a caller identity.
func (s *HTTPServer) requireOwner(c *gin.Context) {
	owner := c.GetHeader(ownerHeader)
	if owner == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error":   ownerHeader + " header is required",
		})
		return
	}
	c.Set(ownerKey, owner)
	c.Next()
}

func owner(c *gin.Context) string {
	return c.GetString(ownerKey)
}

// createVault is a handler for POST /vaults.
func (s *HTTPServer) createVault(c *gin.Context) {
	var req CreateVaultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	vault, err := s.successio.CreateVault(c.Request.Context(), models.NewVault{
		OwnerID:                  owner(c),
		OwnerEmail:               req.OwnerEmail,
		Name:                     req.Name,
		Description:              req.Description,
		Tier:                     models.Tier(req.Tier),
		InactivityDays:           req.InactivityDays,
		DistributionMethod:       models.DistributionMethod(req.DistributionMethod),
		RequiresGuardianApproval: req.RequiresGuardianApproval,
	})
	if err != nil {
		s.fail(c, err)
		return
	}

	s.logger.Infow("Vault created", "vault", vault.ID, "owner", vault.OwnerID)
	c.JSON(http.StatusCreated, vault)
}

func (s *HTTPServer) getVault(c *gin.Context) {
	details, err := s.successio.GetVault(c.Request.Context(), c.Param("id"), owner(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

func (s *HTTPServer) updateVault(c *gin.Context) {
	var patch models.VaultPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		s.badRequest(c, err)
		return
	}

	vault, err := s.successio.UpdateVault(c.Request.Context(), c.Param("id"), owner(c), patch)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, vault)
}

func (s *HTTPServer) upgradeTier(c *gin.Context) {
	var req TierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	vault, err := s.successio.UpgradeTier(c.Request.Context(), c.Param("id"), owner(c), models.Tier(req.Tier))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, vault)
}

// checkIn is a handler for the check-in link sent with inactivity warnings.
func (s *HTTPServer) checkIn(c *gin.Context) {
	vault, err := s.successio.CheckIn(c.Request.Context(), c.Param("id"), owner(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, vault)
}

func (s *HTTPServer) cancelVault(c *gin.Context) {
	vault, err := s.successio.CancelVault(c.Request.Context(), c.Param("id"), owner(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	s.logger.Infow("Vault cancelled", "vault", vault.ID, "owner", vault.OwnerID)
	c.JSON(http.StatusOK, vault)
}

func (s *HTTPServer) cancelTrigger(c *gin.Context) {
	vault, err := s.successio.CancelTrigger(c.Request.Context(), c.Param("id"), owner(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, vault)
}

func (s *HTTPServer) listActivity(c *gin.Context) {
	limit := defaultActivityLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	activities, err := s.successio.ListActivity(c.Request.Context(), c.Param("id"), owner(c), limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, activities)
}

func (s *HTTPServer) listDistribution(c *gin.Context) {
	instructions, err := s.successio.ListDistributionInstructions(c.Request.Context(), c.Param("id"), owner(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, instructions)
}

// runSweep runs one inactivity sweep synchronously and returns the aggregate result.
func (s *HTTPServer) runSweep(c *gin.Context) {
	result, err := s.successio.ProcessInactivityCheck(c.Request.Context())
	if err != nil {
		s.logger.Errorw("Sweep finished with failures", "result", result, "error", err)
		c.JSON(http.StatusOK, gin.H{"success": false, "result": result, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
}
