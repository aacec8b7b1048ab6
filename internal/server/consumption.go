package server

import (
	"github.com/gin-gonic/gin"
	consumptiondomain "github.com/smallbiznis/telecomservice/internal/consumption/domain"
)

type apiGeneration int

const (
	apiV1 apiGeneration = iota + 1
	apiV2
)

const paramRecords = "records"

// CreateConsumption creates one record, or every entry of params.records in a single transaction.
func (s *Server) CreateConsumption(c *gin.Context) {
	params := rpcParams(c)
	ctx := c.Request.Context()

	batch, isBatch, err := paramList(params, paramRecords)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if isBatch {
		records, err := s.consumptionSvc.CreateMany(ctx, batch)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		respond(c, nonNilRecords(records))
		return
	}

	record, err := s.consumptionSvc.Create(ctx, params)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, []consumptiondomain.Record{*record})
}

func (s *Server) GetConsumption(c *gin.Context) {
	record, err := s.consumptionSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, []consumptiondomain.Record{*record})
}

// ListConsumption pages records newest first. The default page size depends on the API generation.
func (s *Server) ListConsumption(gen apiGeneration) gin.HandlerFunc {
	return func(c *gin.Context) {
		params := rpcParams(c)

		limit := s.defaultListLimit(gen)
		if v, ok := consumptiondomain.ParseInt64(params["limit"]); ok && v > 0 {
			limit = int(v)
		}
		offset := 0
		if v, ok := consumptiondomain.ParseInt64(params["offset"]); ok && v > 0 {
			offset = int(v)
		}

		records, err := s.consumptionSvc.List(c.Request.Context(), consumptiondomain.ListRequest{
			Limit:      limit,
			Offset:     offset,
			DateFilter: params["date_filter"],
		})
		if err != nil {
			AbortWithError(c, err)
			return
		}
		respond(c, nonNilRecords(records))
	}
}

func (s *Server) UpdateConsumption(c *gin.Context) {
	record, err := s.consumptionSvc.Update(c.Request.Context(), c.Param("id"), rpcParams(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, []consumptiondomain.Record{*record})
}

func (s *Server) DeleteConsumption(c *gin.Context) {
	if err := s.consumptionSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, true)
}

// OnChangeConsumption previews the computed fields of an unsaved record.
func (s *Server) OnChangeConsumption(c *gin.Context) {
	record, err := s.consumptionSvc.OnChange(c.Request.Context(), rpcParams(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, []consumptiondomain.Record{*record})
}

func (s *Server) defaultListLimit(gen apiGeneration) int {
	limits := s.telecomCfg.Get().ListLimit
	if gen == apiV1 {
		return limits.V1
	}
	return limits.V2
}

func nonNilRecords(records []consumptiondomain.Record) []consumptiondomain.Record {
	if records == nil {
		return []consumptiondomain.Record{}
	}
	return records
}
