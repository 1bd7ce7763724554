package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/bizhub/internal/actorcontext"
	assetdomain "github.com/smallbiznis/bizhub/internal/asset/domain"
	"github.com/smallbiznis/bizhub/pkg/db/pagination"
)

func (s *Server) CreateAsset(c *gin.Context) {
	var req assetdomain.CreateAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	asset, err := s.assetSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": asset})
}

type listAssetsQuery struct {
	PageToken      string `form:"page_token"`
	PageSize       int    `form:"page_size"`
	Slug           string `form:"slug"`
	IncludeDeleted bool   `form:"include_deleted"`
}

func (s *Server) ListAssets(c *gin.Context) {
	var query listAssetsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.assetSvc.List(c.Request.Context(), assetdomain.ListAssetsRequest{
		Pagination: pagination.Pagination{
			PageToken: strings.TrimSpace(query.PageToken),
			PageSize:  query.PageSize,
		},
		Slug:           strings.TrimSpace(query.Slug),
		IncludeDeleted: query.IncludeDeleted,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Assets, "page_info": resp.PageInfo})
}

func (s *Server) GetAsset(c *gin.Context) {
	assetID, err := assetdomain.ParseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	asset, err := s.assetSvc.GetByID(c.Request.Context(), assetID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": asset})
}

func (s *Server) UpdateAsset(c *gin.Context) {
	assetID, err := assetdomain.ParseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req assetdomain.UpdateAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	asset, err := s.assetSvc.Update(c.Request.Context(), assetID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": asset})
}

func (s *Server) DeleteAsset(c *gin.Context) {
	assetID, err := assetdomain.ParseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	var actor *snowflake.ID
	if id, ok := actorcontext.ActorFromContext(ctx); ok {
		actor = &id
	}

	if err := s.assetSvc.Delete(ctx, assetID, actor); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
