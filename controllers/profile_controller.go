package controllers

import (
	"net/http"

	apperrors "github.com/ehson1111/chocoberry-bot/common/errors"
	"github.com/ehson1111/chocoberry-bot/models"
	"github.com/ehson1111/chocoberry-bot/services"
	"github.com/gin-gonic/gin"
)

type ProfileController struct {
	profiles services.ProfileService
}

func NewProfileController(profiles services.ProfileService) *ProfileController {
	return &ProfileController{profiles: profiles}
}

// GetProfile handles GET /profile.
func (pc *ProfileController) GetProfile(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	profile, err := pc.profiles.GetProfile(c.Request.Context(), uid)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile, "complete": profile.IsComplete()})
}

// UpdateProfile handles PUT /profile.
func (pc *ProfileController) UpdateProfile(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	var req models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperrors.BadRequest("Invalid request", err))
		return
	}
	profile, err := pc.profiles.UpdateProfile(c.Request.Context(), uid, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile, "complete": profile.IsComplete()})
}
