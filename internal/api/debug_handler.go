package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Greet, Add and Echo are connectivity checks for tool clients. They are
// only routed when test tools are enabled.

func (h *Handler) Greet(c *gin.Context) {
	var body struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Hello, %s!", body.Name)})
}

func (h *Handler) Add(c *gin.Context) {
	var body struct {
		A *int `json:"a" binding:"required"`
		B *int `json:"b" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": *body.A + *body.B})
}

func (h *Handler) Echo(c *gin.Context) {
	var body struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": body.Text})
}
