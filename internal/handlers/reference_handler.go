package handlers

import (
	"net/http"

	"github.com/docufind/backend/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// ReferenceHandler serves reference data: document types, pickup stations and
// claimant addresses.
type ReferenceHandler struct {
	db *gorm.DB
}

// NewReferenceHandler creates a new reference data handler
func NewReferenceHandler(db *gorm.DB) *ReferenceHandler {
	return &ReferenceHandler{db: db}
}

// ListDocumentTypes handles GET /api/document-types
func (h *ReferenceHandler) ListDocumentTypes(c *gin.Context) {
	var types []models.DocumentType
	if err := h.db.Order("name").Find(&types).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load document types"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"document_types": types})
}

// CreateDocumentType handles POST /api/admin/document-types
func (h *ReferenceHandler) CreateDocumentType(c *gin.Context) {
	var req struct {
		Name         string  `json:"name" binding:"required"`
		ServiceFee   float64 `json:"service_fee"`
		FinderReward float64 `json:"finder_reward"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	docType := models.DocumentType{
		Name:         req.Name,
		Slug:         slug.Make(req.Name),
		ServiceFee:   req.ServiceFee,
		FinderReward: req.FinderReward,
	}
	if err := h.db.Create(&docType).Error; err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Document type already exists"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"document_type": docType})
}

// ListPickupStations handles GET /api/pickup-stations
func (h *ReferenceHandler) ListPickupStations(c *gin.Context) {
	var stations []models.PickupStation
	query := h.db.Order("name")
	if region := c.Query("region"); region != "" {
		query = query.Where("region = ?", region)
	}
	if err := query.Find(&stations).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load pickup stations"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"pickup_stations": stations})
}

// CreatePickupStation handles POST /api/admin/pickup-stations
func (h *ReferenceHandler) CreatePickupStation(c *gin.Context) {
	var req struct {
		Name    string `json:"name" binding:"required"`
		Region  string `json:"region" binding:"required"`
		City    string `json:"city"`
		Address string `json:"address"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	station := models.PickupStation{
		Name:    req.Name,
		Slug:    slug.Make(req.Name),
		Region:  req.Region,
		City:    req.City,
		Address: req.Address,
	}
	if err := h.db.Create(&station).Error; err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Pickup station already exists"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"pickup_station": station})
}

// ListAddresses handles GET /api/addresses
func (h *ReferenceHandler) ListAddresses(c *gin.Context) {
	userID := currentUserID(c)
	var addresses []models.Address
	if err := h.db.Where("user_id = ?", userID).Find(&addresses).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load addresses"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"addresses": addresses})
}

// CreateAddress handles POST /api/addresses
func (h *ReferenceHandler) CreateAddress(c *gin.Context) {
	var req struct {
		Region string `json:"region" binding:"required"`
		City   string `json:"city" binding:"required"`
		Line   string `json:"line" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := currentUserID(c)
	address := models.Address{
		UserID: &userID,
		Region: req.Region,
		City:   req.City,
		Line:   req.Line,
	}
	if err := h.db.Create(&address).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create address"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"address": address})
}
