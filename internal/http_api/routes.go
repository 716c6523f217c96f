package http_api

// routes sets up the routes for the HTTP server.
func (s *HTTPServer) routes() {
	api := s.router.Group("/api/v1")

	vaults := api.Group("/vaults", s.requireOwner)
	vaults.POST("", s.createVault)
	vaults.GET("/:id", s.getVault)
	vaults.PATCH("/:id", s.updateVault)
	vaults.POST("/:id/tier", s.upgradeTier)
	vaults.POST("/:id/check-in", s.checkIn)
	vaults.POST("/:id/cancel", s.cancelVault)
	vaults.POST("/:id/cancel-trigger", s.cancelTrigger)
	vaults.GET("/:id/activity", s.listActivity)
	vaults.GET("/:id/distribution", s.listDistribution)

	vaults.POST("/:id/beneficiaries", s.addBeneficiary)
	vaults.PATCH("/:id/beneficiaries/:bid", s.updateBeneficiary)
	vaults.DELETE("/:id/beneficiaries/:bid", s.removeBeneficiary)

	vaults.POST("/:id/guardians", s.addGuardian)
	vaults.DELETE("/:id/guardians/:gid", s.removeGuardian)
	vaults.POST("/:id/guardians/:gid/resend", s.resendGuardianInvite)
	vaults.POST("/:id/notify-guardians", s.notifyGuardians)

	// links delivered by email
	api.GET("/beneficiaries/verify", s.verifyBeneficiary)
	api.GET("/guardians/accept", s.acceptGuardianInvite)
	api.GET("/guardians/decline", s.declineGuardianInvite)
	api.POST("/guardians/decline", s.declineGuardianInvite)
	api.POST("/approvals", s.approveDistribution)

	// for external schedulers
	api.POST("/sweep", s.runSweep)
}
