package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/invoicereminder/internal/barcode"
	userdomain "github.com/smallbiznis/invoicereminder/internal/user/domain"
)

type createUserRequest struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	ChatID int64  `json:"chat_id"`
}

func (s *Server) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.userSvc.Create(c.Request.Context(), userdomain.CreateUserRequest{
		Name:   strings.TrimSpace(req.Name),
		Email:  strings.TrimSpace(req.Email),
		ChatID: req.ChatID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetUser(c *gin.Context) {
	resp, err := s.userSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("user_id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type storeTokenRequest struct {
	Provider     string `json:"provider"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	Expiry       string `json:"expiry"`
}

func (s *Server) StoreToken(c *gin.Context) {
	var req storeTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var expiry time.Time
	if raw := strings.TrimSpace(req.Expiry); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			AbortWithError(c, newValidationError("expiry", "invalid_expiry", "invalid expiry"))
			return
		}
		expiry = parsed
	}

	resp, err := s.userSvc.StoreToken(c.Request.Context(), userdomain.StoreTokenRequest{
		UserID:       strings.TrimSpace(c.Param("user_id")),
		Provider:     req.Provider,
		AccessToken:  req.AccessToken,
		RefreshToken: req.RefreshToken,
		TokenType:    req.TokenType,
		Expiry:       expiry,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

type createScanDefinitionRequest struct {
	Sender         string `json:"sender"`
	AttachmentName string `json:"attachment_name"`
	Beneficiary    string `json:"beneficiary"`
	DocumentType   string `json:"document_type"`
}

func (s *Server) CreateScanDefinition(c *gin.Context) {
	var req createScanDefinitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	docType, err := barcode.ParseDocumentType(req.DocumentType)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.userSvc.CreateScanDefinition(c.Request.Context(), userdomain.CreateScanDefinitionRequest{
		UserID:         strings.TrimSpace(c.Param("user_id")),
		Sender:         req.Sender,
		AttachmentName: req.AttachmentName,
		Beneficiary:    req.Beneficiary,
		DocumentType:   docType,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListScanDefinitions(c *gin.Context) {
	resp, err := s.userSvc.ListScanDefinitions(c.Request.Context(), strings.TrimSpace(c.Param("user_id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteScanDefinition(c *gin.Context) {
	if err := s.userSvc.DeleteScanDefinition(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
