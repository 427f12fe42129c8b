package controllers

import (
	"errors"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/JobFox/internal/pkg/currency"
	"github.com/ManuelReschke/JobFox/internal/pkg/engine"
	"github.com/ManuelReschke/JobFox/internal/pkg/metrics/counter"
	"github.com/ManuelReschke/JobFox/internal/pkg/pricing"
	"github.com/ManuelReschke/JobFox/internal/pkg/session"
)

// PricingController serves currency detection and localized pricing.
type PricingController struct {
	engine     *engine.Engine
	detections *counter.Counter
	validate   *validator.Validate
}

// NewPricingController counts detections by source when detections is set.
func NewPricingController(e *engine.Engine, detections *counter.Counter) *PricingController {
	return &PricingController{engine: e, detections: detections, validate: validator.New()}
}

type setCurrencyRequest struct {
	Currency string `json:"currency" validate:"required,len=3,alpha"`
}

type recommendationRequest struct {
	Usage map[string]pricing.Usage `json:"usage" validate:"required"`
}

func (pc *PricingController) detect(c *fiber.Ctx) engine.Detection {
	sig := detectionSignals(c)
	return pc.engine.DetectUserCurrency(c.UserContext(), session.Visitor(c), session.VisitorKey(c, sig.ClientIP), sig)
}

// currencyFor uses the currency query parameter when given and the
// visitor's detected currency otherwise.
func (pc *PricingController) currencyFor(c *fiber.Ctx) string {
	if code := currency.Normalize(c.Query("currency")); code != "" {
		return code
	}
	return pc.detect(c).Currency
}

// HandleGetCurrency returns the visitor's currency and how it was chosen.
func (pc *PricingController) HandleGetCurrency(c *fiber.Ctx) error {
	d := pc.detect(c)
	if pc.detections != nil {
		if err := pc.detections.Add(c.UserContext(), d.Source); err != nil {
			log.Printf("Warning: failed to count detection: %v", err)
		}
	}
	response := fiber.Map{
		"currency": d.Currency,
		"source":   d.Source,
		"location": d.Location,
	}
	if info, ok := currency.Lookup(d.Currency); ok {
		response["symbol"] = info.Symbol
		response["name"] = info.Name
	}
	return c.JSON(response)
}

// HandleSetCurrency stores a manual currency choice for the visitor.
func (pc *PricingController) HandleSetCurrency(c *fiber.Ctx) error {
	var req setCurrencyRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}
	if err := pc.validate.Struct(req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "currency must be a three letter code")
	}

	code, err := pc.engine.SetUserCurrency(c.UserContext(), session.Visitor(c), req.Currency)
	if err != nil {
		if errors.Is(err, engine.ErrUnsupportedCurrency) {
			return errorJSON(c, fiber.StatusUnprocessableEntity, "unsupported_currency", "Currency "+currency.Normalize(req.Currency)+" is not supported")
		}
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to store currency")
	}
	return c.JSON(fiber.Map{"success": true, "currency": code})
}

// HandleListCurrencies lists supported currencies with live rates.
func (pc *PricingController) HandleListCurrencies(c *fiber.Ctx) error {
	snap := pc.engine.RatesSnapshot()
	response := fiber.Map{
		"base":       currency.USD,
		"currencies": pc.engine.Currencies(),
	}
	if !snap.FetchedAt.IsZero() {
		response["ratesFetchedAt"] = snap.FetchedAt.UTC().Format(time.RFC3339)
		response["ratesAgeSeconds"] = int64(pc.engine.RatesAge(time.Now()).Seconds())
	}
	return c.JSON(response)
}

// HandleFormat renders an amount, optionally converting it from another
// currency first.
func (pc *PricingController) HandleFormat(c *fiber.Ctx) error {
	amount, err := strconv.ParseFloat(c.Query("amount"), 64)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "amount must be a number")
	}
	code := pc.currencyFor(c)
	if from := currency.Normalize(c.Query("from")); from != "" {
		amount = pc.engine.Convert(amount, from, code)
	}
	return c.JSON(fiber.Map{
		"amount":    amount,
		"currency":  code,
		"formatted": pc.engine.FormatCurrency(amount, code),
	})
}

func (pc *PricingController) HandleListPlans(c *fiber.Ctx) error {
	code := pc.currencyFor(c)
	cycle := pricing.ParseCycle(c.Query("cycle"))
	return c.JSON(fiber.Map{
		"currency": code,
		"cycle":    cycle,
		"plans":    pc.engine.LocalizedPlans(code, cycle),
	})
}

func (pc *PricingController) HandleGetPlan(c *fiber.Ctx) error {
	plan, ok := pc.engine.ToLocalizedPlan(c.Params("id"), pc.currencyFor(c), pricing.ParseCycle(c.Query("cycle")))
	if !ok {
		return errorJSON(c, fiber.StatusNotFound, "not_found", "Plan not found")
	}
	return c.JSON(plan)
}

// HandleComparePlan quotes a plan in several currencies, all supported ones
// when the currencies parameter is absent.
func (pc *PricingController) HandleComparePlan(c *fiber.Ctx) error {
	codes := splitList(c.Query("currencies"))
	if len(codes) == 0 {
		codes = currency.Codes()
	}
	cycle := pricing.ParseCycle(c.Query("cycle"))
	return c.JSON(fiber.Map{
		"plan":   c.Params("id"),
		"cycle":  cycle,
		"quotes": pc.engine.CompareAcrossCurrencies(c.Params("id"), codes, cycle),
	})
}

func (pc *PricingController) HandlePlanSavings(c *fiber.Ctx) error {
	return c.JSON(pc.engine.AnnualSavings(c.Params("id"), pc.currencyFor(c)))
}

func (pc *PricingController) HandleRecommendation(c *fiber.Ctx) error {
	var req recommendationRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}
	if err := pc.validate.Struct(req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "usage is required")
	}
	return c.JSON(pc.engine.RecommendTierChange(c.Params("id"), req.Usage))
}

func (pc *PricingController) HandleFeatureMatrix(c *fiber.Ctx) error {
	tiers := pc.engine.Tiers()
	ids := make([]string, 0, len(tiers))
	for _, t := range tiers {
		ids = append(ids, t.ID)
	}
	return c.JSON(fiber.Map{"tiers": ids, "features": pc.engine.FeatureMatrix()})
}

// HandleListTiers returns the raw USD catalog as a bare array, the format
// pricing.HTTPSource reads.
func (pc *PricingController) HandleListTiers(c *fiber.Ctx) error {
	return c.JSON(pc.engine.Tiers())
}

// HandleSaveTier creates or updates a tier. The outcome is always reported
// in the success flag.
func (pc *PricingController) HandleSaveTier(c *fiber.Ctx) error {
	var tier pricing.Tier
	if err := c.BodyParser(&tier); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid request body"})
	}

	saved, err := pc.engine.SaveTier(c.UserContext(), tier)
	if err != nil {
		var verrs validator.ValidationErrors
		switch {
		case errors.As(err, &verrs):
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"success": false, "message": validationMessage(verrs)})
		case errors.Is(err, pricing.ErrNoSource):
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"success": false, "message": "No catalog backend configured"})
		default:
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"success": false, "message": "Failed to save tier"})
		}
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "tier": saved})
}

func (pc *PricingController) HandleRefreshRates(c *fiber.Ctx) error {
	refreshed := pc.engine.RefreshRates(c.UserContext())
	snap := pc.engine.RatesSnapshot()
	response := fiber.Map{"refreshed": refreshed}
	if !snap.FetchedAt.IsZero() {
		response["ratesFetchedAt"] = snap.FetchedAt.UTC().Format(time.RFC3339)
	}
	return c.JSON(response)
}

func (pc *PricingController) HandleHealth(c *fiber.Ctx) error {
	catalog := "default"
	if pc.engine.CatalogRemote() {
		catalog = "remote"
	}
	response := fiber.Map{
		"status":  "ok",
		"catalog": catalog,
		"tiers":   len(pc.engine.Tiers()),
	}
	if pc.detections != nil {
		if counts, err := pc.detections.All(c.UserContext()); err == nil {
			response["detections"] = counts
		}
	}
	return c.JSON(response)
}

func validationMessage(verrs validator.ValidationErrors) string {
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Namespace()+" failed "+fe.Tag())
	}
	return "Invalid tier: " + strings.Join(fields, ", ")
}
