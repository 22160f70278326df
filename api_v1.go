package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
)

type jsonResponseData struct {
	ApiVersion string                 `json:"api_version"`
	Endpoint   string                 `json:"endpoint"`
	Success    bool                   `json:"success"`
	Message    string                 `json:"message"`
	Data       map[string]interface{} `json:"data"`
}

func apiV1Handler(deps *Dependencies) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Content-Type", "application/json")

		params := mux.Vars(r)
		endpoint := params["endpoint"]

		jsonResponse := jsonResponseData{ApiVersion: "0.1.0", Endpoint: endpoint, Success: false, Data: make(map[string]interface{})}

		switch endpoint {
		case "version":
			jsonResponse.Success = true
			jsonResponse.Message = "ok"

		case "search":
			apiSearch(deps, r, &jsonResponse)

		case "series":
			apiSeries(deps, r, &jsonResponse)

		case "financials":
			apiFinancials(deps, r, &jsonResponse)

		case "quote":
			apiQuote(deps, r, &jsonResponse)

		case "heatmap":
			apiHeatmap(deps, r, &jsonResponse)

		case "movers":
			apiMovers(deps, r, &jsonResponse)

		case "indices":
			apiIndices(deps, r, &jsonResponse)

		case "forex":
			apiForex(deps, r, &jsonResponse)

		case "rates":
			apiRates(deps, r, &jsonResponse)

		case "refresh-directory":
			apiRefreshDirectory(deps, r, &jsonResponse)

		default:
			deps.logger.Error().Str("api_version", jsonResponse.ApiVersion).Str("endpoint", endpoint).Err(fmt.Errorf("failure: call to unknown api endpoint")).Msg("api call failed")
			jsonResponse.Success = false
			jsonResponse.Message = "Failure: unknown endpoint"
		}

		json.NewEncoder(w).Encode(jsonResponse)
	})
}

func apiSearch(deps *Dependencies, r *http.Request, jsonResponse *jsonResponseData) {
	query := r.FormValue("ticker")

	identity, err := resolveTicker(deps, query)
	if err != nil {
		writeResolveFailure(deps, err, query, jsonResponse)
		return
	}

	jsonResponse.Success = true
	jsonResponse.Message = "ok"
	jsonResponse.Data["emisora"] = identity.Emisora
	jsonResponse.Data["serie"] = identity.Serie
	jsonResponse.Data["razon_social"] = identity.RazonSocial
	jsonResponse.Data["tipo_valor"] = identity.TipoValor
	jsonResponse.Data["ticker"] = identity.TickerKey()
}

func apiSeries(deps *Dependencies, r *http.Request, jsonResponse *jsonResponseData) {
	query := r.FormValue("ticker")
	months := 6
	if monthsStr := r.FormValue("months"); monthsStr != "" {
		parsed, err := strconv.Atoi(monthsStr)
		if err != nil {
			jsonResponse.Message = "Failure: invalid months param"
			return
		}
		months = parsed
	}

	identity, err := resolveTicker(deps, query)
	if err != nil {
		writeResolveFailure(deps, err, query, jsonResponse)
		return
	}

	points, err := getIntradaySeries(deps, identity, months)
	if err != nil {
		if errors.Is(err, errValidation) {
			jsonResponse.Message = "Failure: invalid months param"
			return
		}
		deps.logger.Error().Err(err).Str("ticker", identity.TickerKey()).Msg("failed to load series")
		jsonResponse.Message = "Failure: could not load series"
		return
	}

	jsonResponse.Success = true
	jsonResponse.Message = "ok"
	jsonResponse.Data["ticker"] = identity.TickerKey()
	jsonResponse.Data["months"] = months
	jsonResponse.Data["points"] = points
}

func apiFinancials(deps *Dependencies, r *http.Request, jsonResponse *jsonResponseData) {
	query := r.FormValue("ticker")
	period := r.FormValue("period")

	identity, err := resolveTicker(deps, query)
	if err != nil {
		writeResolveFailure(deps, err, query, jsonResponse)
		return
	}

	bundle, err := getFinancialBundle(deps, identity, period)
	if err != nil {
		if errors.Is(err, errValidation) {
			jsonResponse.Message = "Failure: invalid period param"
			return
		}
		deps.logger.Error().Err(err).Str("ticker", identity.TickerKey()).Msg("failed to load financials")
		jsonResponse.Message = "Failure: could not load financials"
		return
	}

	jsonResponse.Success = true
	jsonResponse.Message = "ok"
	jsonResponse.Data["emisora"] = bundle.Emisora
	jsonResponse.Data["period"] = bundle.PeriodToken
	jsonResponse.Data["cash_flow"] = bundle.CashFlow
	jsonResponse.Data["position"] = bundle.Position
	jsonResponse.Data["quarterly_income"] = bundle.QuarterlyIncome
	jsonResponse.Data["available_periods"] = bundle.AvailablePeriods
}

func apiQuote(deps *Dependencies, r *http.Request, jsonResponse *jsonResponseData) {
	query := r.FormValue("ticker")

	identity, err := resolveTicker(deps, query)
	if err != nil {
		writeResolveFailure(deps, err, query, jsonResponse)
		return
	}

	quote, err := getQuote(deps, identity.TickerKey())
	if err != nil || quote == nil {
		deps.logger.Error().Err(err).Str("ticker", identity.TickerKey()).Msg("failed to get live quote")
		jsonResponse.Message = "Failure: could not load quote"
		return
	}

	jsonResponse.Success = true
	jsonResponse.Message = "ok"
	jsonResponse.Data["ticker"] = identity.TickerKey()
	jsonResponse.Data["last_price"] = quote.LastPrice
	jsonResponse.Data["avg_price"] = quote.AvgPrice
	jsonResponse.Data["volume"] = quote.Volume
	jsonResponse.Data["change_pct"] = quote.ChangePct
	jsonResponse.Data["price_date"] = quote.PriceDate
}

func apiHeatmap(deps *Dependencies, r *http.Request, jsonResponse *jsonResponseData) {
	entries := deps.heatmap.get(deps)

	jsonResponse.Success = true
	jsonResponse.Message = "ok"
	jsonResponse.Data["entries"] = entries
}

func apiMovers(deps *Dependencies, r *http.Request, jsonResponse *jsonResponseData) {
	asOf := deps.quoteCutover.asOfDate(time.Now())
	top, err := fetchProviderTop(deps, asOf)
	if err != nil {
		deps.logger.Error().Err(err).Msg("failed to get top movers")
		jsonResponse.Message = "Failure: could not load movers"
		return
	}

	jsonResponse.Success = true
	jsonResponse.Message = "ok"
	jsonResponse.Data["date"] = asOf.Format(sqlDateParseType)
	jsonResponse.Data["gainers"] = top.Suben
	jsonResponse.Data["losers"] = top.Bajan
	jsonResponse.Data["by_value"] = top.Importe
	jsonResponse.Data["by_volume"] = top.Volumen
}

func apiIndices(deps *Dependencies, r *http.Request, jsonResponse *jsonResponseData) {
	indices, err := fetchProviderIndices(deps)
	if err != nil {
		deps.logger.Error().Err(err).Msg("failed to get indices")
		jsonResponse.Message = "Failure: could not load indices"
		return
	}

	jsonResponse.Success = true
	jsonResponse.Message = "ok"
	jsonResponse.Data["ipc"] = indices.IPC
	jsonResponse.Data["ftse_biva"] = indices.FTSEBIVA
	jsonResponse.Data["sp500"] = indices.SP500
	jsonResponse.Data["djia"] = indices.DJIA
}

func apiForex(deps *Dependencies, r *http.Request, jsonResponse *jsonResponseData) {
	forex, err := fetchProviderForex(deps)
	if err != nil {
		deps.logger.Error().Err(err).Msg("failed to get forex pairs")
		jsonResponse.Message = "Failure: could not load forex"
		return
	}

	jsonResponse.Success = true
	jsonResponse.Message = "ok"
	jsonResponse.Data["usd_mxn"] = forex.USDMXN
	jsonResponse.Data["eur_mxn"] = forex.EURMXN
}

func apiRates(deps *Dependencies, r *http.Request, jsonResponse *jsonResponseData) {
	rates, err := fetchProviderRates(deps)
	if err != nil {
		deps.logger.Error().Err(err).Msg("failed to get reference rates")
		jsonResponse.Message = "Failure: could not load rates"
		return
	}

	jsonResponse.Success = true
	jsonResponse.Message = "ok"
	jsonResponse.Data["cete_28"] = rates.Cete28
	jsonResponse.Data["cete_182"] = rates.Cete182
	jsonResponse.Data["cete_364"] = rates.Cete364
	jsonResponse.Data["tiie_28"] = rates.TIIE28
	jsonResponse.Data["tiie_91"] = rates.TIIE91
	jsonResponse.Data["tiie_182"] = rates.TIIE182
	jsonResponse.Data["tasa_objetivo"] = rates.TasaObjetivo
}

func apiRefreshDirectory(deps *Dependencies, r *http.Request, jsonResponse *jsonResponseData) {
	count, err := refreshIssuerDirectory(deps)
	if err != nil {
		deps.logger.Error().Err(err).Msg("failed to refresh issuer directory")
		jsonResponse.Message = "Failure: could not refresh issuer directory"
		return
	}

	jsonResponse.Success = true
	jsonResponse.Message = "ok"
	jsonResponse.Data["issuers"] = count
}

func writeResolveFailure(deps *Dependencies, err error, query string, jsonResponse *jsonResponseData) {
	switch {
	case errors.Is(err, errNotFound):
		jsonResponse.Message = "Failure: unknown ticker"
		jsonResponse.Data["candidates"] = searchIssuers(deps, query)
	case errors.Is(err, errValidation):
		jsonResponse.Message = "Failure: missing ticker param"
	default:
		deps.logger.Error().Err(err).Str("ticker", query).Msg("failed to resolve ticker")
		jsonResponse.Message = "Failure: could not resolve ticker"
	}
}
