package http_api

import (
	"net/http"

	"github.com/core-coin/successio/internal/models"
	"github.com/gin-gonic/gin"
)

// BeneficiaryRequest represents the JSON body for adding a beneficiary
type BeneficiaryRequest struct {
	Name          string  `json:"name" binding:"required"`
	Email         string  `json:"email" binding:"required,email"`
	WalletAddress string  `json:"wallet_address"`
	Relationship  string  `json:"relationship"`
	Percentage    float64 `json:"percentage" binding:"required,gt=0,lte=100"`
}

// GuardianRequest represents the JSON body for inviting a guardian
type GuardianRequest struct {
	Name          string `json:"name" binding:"required"`
	Email         string `json:"email" binding:"required,email"`
	WalletAddress string `json:"wallet_address"`
	Relationship  string `json:"relationship"`
}

// DeclineRequest carries the optional reason of a declined invitation
type DeclineRequest struct {
	Token  string `form:"token" json:"token"`
	Reason string `form:"reason" json:"reason"`
}

// ApprovalRequest carries the approval token mailed to a guardian
type ApprovalRequest struct {
	Token string `form:"token" json:"token" binding:"required"`
}

func (s *HTTPServer) addBeneficiary(c *gin.Context) {
	var req BeneficiaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	beneficiary, err := s.successio.AddBeneficiary(c.Request.Context(), c.Param("id"), owner(c), models.BeneficiaryInput{
		Name:          req.Name,
		Email:         req.Email,
		WalletAddress: req.WalletAddress,
		Relationship:  req.Relationship,
		Percentage:    req.Percentage,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, beneficiary)
}

func (s *HTTPServer) updateBeneficiary(c *gin.Context) {
	var patch models.BeneficiaryPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		s.badRequest(c, err)
		return
	}

	beneficiary, err := s.successio.UpdateBeneficiary(c.Request.Context(), c.Param("id"), owner(c), c.Param("bid"), patch)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, beneficiary)
}

func (s *HTTPServer) removeBeneficiary(c *gin.Context) {
	if err := s.successio.RemoveBeneficiary(c.Request.Context(), c.Param("id"), owner(c), c.Param("bid")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// verifyBeneficiary is a handler for the verification link sent to new beneficiaries.
func (s *HTTPServer) verifyBeneficiary(c *gin.Context) {
	beneficiary, err := s.successio.VerifyBeneficiary(c.Request.Context(), c.Query("token"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Email verified", "beneficiary": beneficiary})
}

func (s *HTTPServer) addGuardian(c *gin.Context) {
	var req GuardianRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	guardian, err := s.successio.AddGuardian(c.Request.Context(), c.Param("id"), owner(c), models.GuardianInput{
		Name:          req.Name,
		Email:         req.Email,
		WalletAddress: req.WalletAddress,
		Relationship:  req.Relationship,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, guardian)
}

func (s *HTTPServer) removeGuardian(c *gin.Context) {
	if err := s.successio.RemoveGuardian(c.Request.Context(), c.Param("id"), owner(c), c.Param("gid")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *HTTPServer) resendGuardianInvite(c *gin.Context) {
	guardian, err := s.successio.ResendGuardianInvite(c.Request.Context(), c.Param("id"), owner(c), c.Param("gid"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, guardian)
}

// notifyGuardians re-sends the trigger notice to the active guardians of a vault.
func (s *HTTPServer) notifyGuardians(c *gin.Context) {
	if _, err := s.successio.GetVault(c.Request.Context(), c.Param("id"), owner(c)); err != nil {
		s.fail(c, err)
		return
	}
	count, err := s.successio.NotifyGuardiansOfTrigger(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "notified": count})
}

func (s *HTTPServer) acceptGuardianInvite(c *gin.Context) {
	guardian, err := s.successio.AcceptGuardianInvite(c.Request.Context(), c.Query("token"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Invitation accepted", "guardian": guardian})
}

// declineGuardianInvite accepts the token and reason from the query string or a JSON body.
func (s *HTTPServer) declineGuardianInvite(c *gin.Context) {
	var req DeclineRequest
	if err := c.ShouldBind(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	if req.Token == "" {
		req.Token = c.Query("token")
	}

	guardian, err := s.successio.DeclineGuardianInvite(c.Request.Context(), req.Token, req.Reason)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Invitation declined", "guardian": guardian})
}

func (s *HTTPServer) approveDistribution(c *gin.Context) {
	var req ApprovalRequest
	if err := c.ShouldBind(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	guardian, err := s.successio.ApproveDistribution(c.Request.Context(), req.Token)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Distribution approved", "guardian": guardian})
}
