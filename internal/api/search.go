package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"job-matcher-go/internal/models"
	"job-matcher-go/internal/scraper"
	"job-matcher-go/internal/storage"
)

var schedulingDisabledError = errors.New("scheduling is disabled")

type profileURI struct {
	ID string `uri:"id" binding:"required"`
}

type startSearchResponse struct {
	RunID     string `json:"run_id"`
	ProfileID string `json:"profile_id"`
	State     string `json:"state"`
}

// loadProfile binds the profile id and loads it, writing the error response
// itself when that fails.
func (server *Server) loadProfile(ctx *gin.Context) (models.SearchProfile, bool) {
	var uri profileURI
	if err := ctx.ShouldBindUri(&uri); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(err))
		return models.SearchProfile{}, false
	}

	profile, err := server.profiles.GetProfile(ctx, uri.ID)
	if err != nil {
		if errors.Is(err, storage.ErrProfileNotFound) {
			ctx.JSON(http.StatusNotFound, errorResponse(err))
			return models.SearchProfile{}, false
		}
		ctx.JSON(http.StatusInternalServerError, errorResponse(err))
		return models.SearchProfile{}, false
	}
	return profile, true
}

// startSearch launches a background run for a profile
func (server *Server) startSearch(ctx *gin.Context) {
	profile, ok := server.loadProfile(ctx)
	if !ok {
		return
	}

	runID, err := server.search.Start(ctx.Request.Context(), profile)
	if err != nil {
		if errors.Is(err, scraper.ErrRunInProgress) {
			ctx.JSON(http.StatusConflict, errorResponse(err))
			return
		}
		ctx.JSON(http.StatusInternalServerError, errorResponse(err))
		return
	}

	ctx.JSON(http.StatusAccepted, startSearchResponse{
		RunID:     runID,
		ProfileID: profile.ID,
		State:     string(server.search.Status(ctx, profile.ID).State),
	})
}

// getSearchStatus returns the latest run snapshot, or the unknown state
func (server *Server) getSearchStatus(ctx *gin.Context) {
	var uri profileURI
	if err := ctx.ShouldBindUri(&uri); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(err))
		return
	}

	ctx.JSON(http.StatusOK, server.search.Status(ctx, uri.ID))
}

// stopSearch asks the run to stop at its next checkpoint
func (server *Server) stopSearch(ctx *gin.Context) {
	var uri profileURI
	if err := ctx.ShouldBindUri(&uri); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(err))
		return
	}

	if err := server.search.Stop(ctx, uri.ID); err != nil {
		ctx.JSON(http.StatusInternalServerError, errorResponse(err))
		return
	}
	ctx.JSON(http.StatusAccepted, gin.H{"stopping": server.search.Active(uri.ID)})
}

// cancelSearch hard-cancels the in-flight run; cancelling nothing succeeds
func (server *Server) cancelSearch(ctx *gin.Context) {
	var uri profileURI
	if err := ctx.ShouldBindUri(&uri); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(err))
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"cancelled": server.search.Cancel(uri.ID)})
}

// clearSearchStatus forgets a finished run
func (server *Server) clearSearchStatus(ctx *gin.Context) {
	var uri profileURI
	if err := ctx.ShouldBindUri(&uri); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(err))
		return
	}

	if !server.search.Clear(ctx, uri.ID) {
		ctx.JSON(http.StatusConflict, errorResponse(scraper.ErrRunInProgress))
		return
	}
	ctx.Status(http.StatusNoContent)
}

// listJobs returns the stored jobs of a profile, best match first
func (server *Server) listJobs(ctx *gin.Context) {
	var uri profileURI
	if err := ctx.ShouldBindUri(&uri); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(err))
		return
	}

	jobs, err := server.jobs.ListJobs(ctx, uri.ID)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, errorResponse(err))
		return
	}
	if jobs == nil {
		jobs = []models.Job{}
	}
	ctx.JSON(http.StatusOK, jobs)
}

// syncSchedule reloads a profile and applies its schedule settings
func (server *Server) syncSchedule(ctx *gin.Context) {
	if server.schedules == nil {
		ctx.JSON(http.StatusServiceUnavailable, errorResponse(schedulingDisabledError))
		return
	}
	profile, ok := server.loadProfile(ctx)
	if !ok {
		return
	}

	if err := server.schedules.Schedule(profile); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(err))
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"profile_id": profile.ID, "scheduled": profile.ScheduleEnabled})
}

func (server *Server) listSchedules(ctx *gin.Context) {
	if server.schedules == nil {
		ctx.JSON(http.StatusOK, []string{})
		return
	}
	ctx.JSON(http.StatusOK, server.schedules.Jobs())
}

func (server *Server) listSources(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, server.search.Providers())
}

func (server *Server) getStats(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, server.search.Stats())
}
