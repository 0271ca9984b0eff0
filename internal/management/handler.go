package management

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"argus/internal/logger"
	"argus/pkg/errors"
)

type Handler struct {
	service Service
	logger  logger.Logger
}

func NewHandler(service Service, log logger.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  log,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		scenarios := v1.Group("/scenarios")
		{
			scenarios.GET("", h.ListScenarios)
			scenarios.POST("", h.CreateScenario)
			scenarios.GET("/:id", h.GetScenario)
			scenarios.PUT("/:id", h.UpdateScenario)
			scenarios.DELETE("/:id", h.DeleteScenario)
			scenarios.POST("/:id/rules", h.AddRule)
			scenarios.GET("/:id/bindings", h.ListBindings)
		}

		rules := v1.Group("/rules")
		{
			rules.PUT("/:id", h.UpdateRule)
			rules.DELETE("/:id", h.DeleteRule)
		}

		bindings := v1.Group("/bindings")
		{
			bindings.POST("", h.CreateBinding)
			bindings.PUT("/:id", h.UpdateBinding)
			bindings.DELETE("/:id", h.DeleteBinding)
		}

		policies := v1.Group("/policies")
		{
			policies.GET("", h.ListPolicies)
			policies.POST("", h.CreatePolicy)
			policies.POST("/seed", h.SeedPolicies)
			policies.PUT("/:id", h.UpdatePolicy)
			policies.DELETE("/:id", h.DeletePolicy)
		}

		bands := v1.Group("/risk-bands")
		{
			bands.GET("/:organization_id", h.GetBands)
			bands.PUT("", h.UpsertBands)
		}
	}
}

func (h *Handler) handleError(c *gin.Context, err error) {
	h.logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)

	status := errors.ToHTTPStatus(err)
	response := errors.ToErrorResponse(err)
	c.JSON(status, response)
}

// ListScenarios godoc
// @Summary      List scenarios for an organization
// @Description  Get all detection scenarios owned by an organization
// @Tags         scenarios
// @Accept       json
// @Produce      json
// @Param        organization_id  query     string  true  "Organization ID"
// @Success      200  {array}   scenario.Scenario
// @Failure      400  {object}  errors.ErrorResponse
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /scenarios [get]
func (h *Handler) ListScenarios(c *gin.Context) {
	scenarios, err := h.service.ListScenarios(c.Request.Context(), c.Query("organization_id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, scenarios)
}

// CreateScenario godoc
// @Summary      Create a scenario
// @Description  Create a detection scenario with its initial rule set
// @Tags         scenarios
// @Accept       json
// @Produce      json
// @Param        scenario  body      CreateScenarioRequest  true  "Scenario data"
// @Success      201  {object}  scenario.Scenario
// @Failure      400  {object}  errors.ErrorResponse
// @Failure      409  {object}  errors.ErrorResponse
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /scenarios [post]
func (h *Handler) CreateScenario(c *gin.Context) {
	var req CreateScenarioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	sc, err := h.service.CreateScenario(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sc)
}

// GetScenario godoc
// @Summary      Get a scenario by ID
// @Description  Get a scenario with its rules
// @Tags         scenarios
// @Accept       json
// @Produce      json
// @Param        id   path      string  true  "Scenario ID"
// @Success      200  {object}  scenario.Scenario
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /scenarios/{id} [get]
func (h *Handler) GetScenario(c *gin.Context) {
	sc, err := h.service.GetScenario(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, sc)
}

// UpdateScenario godoc
// @Summary      Update a scenario
// @Description  Update scenario fields; omitted fields are left unchanged
// @Tags         scenarios
// @Accept       json
// @Produce      json
// @Param        id        path      string                 true  "Scenario ID"
// @Param        scenario  body      UpdateScenarioRequest  true  "Fields to update"
// @Success      200  {object}  scenario.Scenario
// @Failure      400  {object}  errors.ErrorResponse
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /scenarios/{id} [put]
func (h *Handler) UpdateScenario(c *gin.Context) {
	var req UpdateScenarioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	sc, err := h.service.UpdateScenario(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, sc)
}

// DeleteScenario godoc
// @Summary      Delete a scenario
// @Description  Delete a scenario; its rules and bindings are removed with it
// @Tags         scenarios
// @Accept       json
// @Produce      json
// @Param        id   path  string  true  "Scenario ID"
// @Success      204
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /scenarios/{id} [delete]
func (h *Handler) DeleteScenario(c *gin.Context) {
	if err := h.service.DeleteScenario(c.Request.Context(), c.Param("id")); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddRule godoc
// @Summary      Add a rule to a scenario
// @Description  Append a weighted rule to an existing scenario
// @Tags         rules
// @Accept       json
// @Produce      json
// @Param        id    path      string             true  "Scenario ID"
// @Param        rule  body      CreateRuleRequest  true  "Rule data"
// @Success      201  {object}  scenario.Rule
// @Failure      400  {object}  errors.ErrorResponse
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /scenarios/{id}/rules [post]
func (h *Handler) AddRule(c *gin.Context) {
	var req CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	rule, err := h.service.AddRule(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rule)
}

// UpdateRule godoc
// @Summary      Update a rule
// @Tags         rules
// @Accept       json
// @Produce      json
// @Param        id    path      string             true  "Rule ID"
// @Param        rule  body      UpdateRuleRequest  true  "Fields to update"
// @Success      200  {object}  scenario.Rule
// @Failure      400  {object}  errors.ErrorResponse
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /rules/{id} [put]
func (h *Handler) UpdateRule(c *gin.Context) {
	var req UpdateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	rule, err := h.service.UpdateRule(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

// DeleteRule godoc
// @Summary      Delete a rule
// @Tags         rules
// @Accept       json
// @Produce      json
// @Param        id   path  string  true  "Rule ID"
// @Success      204
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /rules/{id} [delete]
func (h *Handler) DeleteRule(c *gin.Context) {
	if err := h.service.DeleteRule(c.Request.Context(), c.Param("id")); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateBinding godoc
// @Summary      Bind a scenario to a camera
// @Tags         bindings
// @Accept       json
// @Produce      json
// @Param        binding  body      CreateBindingRequest  true  "Binding data"
// @Success      201  {object}  scenario.CameraBinding
// @Failure      400  {object}  errors.ErrorResponse
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      409  {object}  errors.ErrorResponse
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /bindings [post]
func (h *Handler) CreateBinding(c *gin.Context) {
	var req CreateBindingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	binding, err := h.service.CreateBinding(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, binding)
}

// ListBindings godoc
// @Summary      List a scenario's camera bindings
// @Tags         bindings
// @Accept       json
// @Produce      json
// @Param        id   path      string  true  "Scenario ID"
// @Success      200  {array}   scenario.CameraBinding
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /scenarios/{id}/bindings [get]
func (h *Handler) ListBindings(c *gin.Context) {
	bindings, err := h.service.ListBindings(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, bindings)
}

// UpdateBinding godoc
// @Summary      Update a camera binding
// @Tags         bindings
// @Accept       json
// @Produce      json
// @Param        id       path      string                true  "Binding ID"
// @Param        binding  body      UpdateBindingRequest  true  "Fields to update"
// @Success      200  {object}  scenario.CameraBinding
// @Failure      400  {object}  errors.ErrorResponse
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /bindings/{id} [put]
func (h *Handler) UpdateBinding(c *gin.Context) {
	var req UpdateBindingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	binding, err := h.service.UpdateBinding(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, binding)
}

// DeleteBinding godoc
// @Summary      Unbind a scenario from a camera
// @Tags         bindings
// @Accept       json
// @Produce      json
// @Param        id   path  string  true  "Binding ID"
// @Success      204
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /bindings/{id} [delete]
func (h *Handler) DeleteBinding(c *gin.Context) {
	if err := h.service.DeleteBinding(c.Request.Context(), c.Param("id")); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListPolicies godoc
// @Summary      List alert policies for an organization
// @Tags         policies
// @Accept       json
// @Produce      json
// @Param        organization_id  query     string  true  "Organization ID"
// @Success      200  {array}   policy.AlertPolicy
// @Failure      400  {object}  errors.ErrorResponse
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /policies [get]
func (h *Handler) ListPolicies(c *gin.Context) {
	policies, err := h.service.ListPolicies(c.Request.Context(), c.Query("organization_id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, policies)
}

// CreatePolicy godoc
// @Summary      Create an alert policy
// @Description  One policy per organization and risk level
// @Tags         policies
// @Accept       json
// @Produce      json
// @Param        policy  body      CreatePolicyRequest  true  "Policy data"
// @Success      201  {object}  policy.AlertPolicy
// @Failure      400  {object}  errors.ErrorResponse
// @Failure      409  {object}  errors.ErrorResponse
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /policies [post]
func (h *Handler) CreatePolicy(c *gin.Context) {
	var req CreatePolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	p, err := h.service.CreatePolicy(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// SeedPolicies godoc
// @Summary      Seed default alert policies for an organization
// @Description  Insert the escalating default policies; existing levels are left untouched
// @Tags         policies
// @Accept       json
// @Produce      json
// @Param        request  body      SeedPoliciesRequest  true  "Organization"
// @Success      201  {array}   policy.AlertPolicy
// @Failure      400  {object}  errors.ErrorResponse
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /policies/seed [post]
func (h *Handler) SeedPolicies(c *gin.Context) {
	var req SeedPoliciesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	seeded, err := h.service.SeedPolicies(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, seeded)
}

// UpdatePolicy godoc
// @Summary      Update an alert policy
// @Tags         policies
// @Accept       json
// @Produce      json
// @Param        id      path      string               true  "Policy ID"
// @Param        policy  body      UpdatePolicyRequest  true  "Fields to update"
// @Success      200  {object}  policy.AlertPolicy
// @Failure      400  {object}  errors.ErrorResponse
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /policies/{id} [put]
func (h *Handler) UpdatePolicy(c *gin.Context) {
	var req UpdatePolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	p, err := h.service.UpdatePolicy(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// DeletePolicy godoc
// @Summary      Delete an alert policy
// @Tags         policies
// @Accept       json
// @Produce      json
// @Param        id   path  string  true  "Policy ID"
// @Success      204
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /policies/{id} [delete]
func (h *Handler) DeletePolicy(c *gin.Context) {
	if err := h.service.DeletePolicy(c.Request.Context(), c.Param("id")); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetBands godoc
// @Summary      Get an organization's risk bands
// @Tags         risk-bands
// @Accept       json
// @Produce      json
// @Param        organization_id  path      string  true  "Organization ID"
// @Success      200  {object}  policy.RiskBands
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /risk-bands/{organization_id} [get]
func (h *Handler) GetBands(c *gin.Context) {
	bands, err := h.service.GetBands(c.Request.Context(), c.Param("organization_id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, bands)
}

// UpsertBands godoc
// @Summary      Set an organization's risk bands
// @Description  Floors must satisfy medium < high < critical
// @Tags         risk-bands
// @Accept       json
// @Produce      json
// @Param        bands  body      UpsertBandsRequest  true  "Band floors"
// @Success      200  {object}  policy.RiskBands
// @Failure      400  {object}  errors.ErrorResponse
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /risk-bands [put]
func (h *Handler) UpsertBands(c *gin.Context) {
	var req UpsertBandsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	bands, err := h.service.UpsertBands(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, bands)
}
