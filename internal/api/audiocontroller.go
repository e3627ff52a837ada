package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/newsbreeze/news-gateway/internal/audio"
	"github.com/newsbreeze/news-gateway/internal/clips"
	"github.com/newsbreeze/news-gateway/internal/speech"
)

// ClipInfoResponse is the body of GET /audio/:clip/info
type ClipInfoResponse struct {
	Clip  clips.Clip     `json:"clip"`
	WAV   *audio.WAVInfo `json:"wav"`
	RMS   float64        `json:"rms"`
	Peak  int            `json:"peak"`
	Level float64        `json:"level_dbfs"`
}

// VoicesResponse is the body of GET /api/voices
type VoicesResponse struct {
	Voices    []speech.Voice `json:"voices"`
	Preferred *speech.Voice  `json:"preferred,omitempty"`
}

type audioController struct {
	clips  ClipSource
	voices VoiceSource
}

// RegisterAudioRoutes registers clip serving and voice listing
func RegisterAudioRoutes(r *gin.Engine, src ClipSource, voices VoiceSource) {
	ctrl := &audioController{clips: src, voices: voices}

	r.GET("/audio/:clip", ctrl.clip)
	r.GET("/audio/:clip/info", ctrl.info)
	r.GET("/api/voices", ctrl.listVoices)
}

func (ctrl *audioController) clip(c *gin.Context) {
	clip, data, err := ctrl.clips.Get(c.Param("clip"))
	if err != nil {
		respondClipError(c, err)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Header("Content-Length", strconv.Itoa(len(data)))
	c.Header("X-Clip-ID", clip.ID)
	c.Data(http.StatusOK, "audio/wav", data)
}

func (ctrl *audioController) info(c *gin.Context) {
	clip, data, err := ctrl.clips.Get(c.Param("clip"))
	if err != nil {
		respondClipError(c, err)
		return
	}

	info, channels, err := audio.DecodeWAV(data)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	resp := ClipInfoResponse{Clip: clip, WAV: info}
	if len(channels) > 0 {
		resp.RMS = audio.CalculateRMS(channels[0])
		resp.Peak = audio.PeakAmplitude(channels[0])
		resp.Level = audio.RMSToDBFS(resp.RMS)
	}
	c.JSON(http.StatusOK, resp)
}

func (ctrl *audioController) listVoices(c *gin.Context) {
	ctx := c.Request.Context()

	voices, err := ctrl.voices.Voices(ctx)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	if voices == nil {
		voices = []speech.Voice{}
	}

	c.JSON(http.StatusOK, VoicesResponse{Voices: voices, Preferred: ctrl.voices.PreferredVoice(ctx)})
}

func respondClipError(c *gin.Context, err error) {
	if errors.Is(err, clips.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
