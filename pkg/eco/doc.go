// Package eco implements the engineering change order effectivity and
// version resolution engine of the MachShop manufacturing backend.
//
// # Overview
//
// The engine decides, for a proposed design/process change, when and under
// what production conditions the change becomes binding, which document
// version a given production context must use, and how inventory transitions
// from the old to the new configuration. It is organized leaf-first:
//
//  1. Rule Evaluator - IsEffective: a pure predicate over an ECO and a
//     production context
//  2. Status State Machine - a central transition table governing the
//     regulated ECO lifecycle
//  3. Configuration Validator - ValidateEffectivity: structural and semantic
//     checks before an effectivity can be trusted
//  4. Version Resolver - Resolver: finds the in-force document version with
//     most-recently-effective precedence
//  5. Transition Planner - Planner: computes a risk-weighted
//     depletion/cutover schedule
//
// The Service type ties these together behind the operations the surrounding
// application consumes: SetEffectivity, Transition, CheckEffectivity,
// GetEffectiveVersion, GetVersionInfo, GetTransitionPlan, and
// ValidateEffectivity.
//
// # Effectivity
//
// Effectivity is a tagged variant with one payload shape per kind: a typed
// date for BY_DATE, an integer cutover for BY_SERIAL_NUMBER and
// BY_WORK_ORDER, a string code for BY_LOT_BATCH, and an empty payload for
// IMMEDIATE. ParseEffectivity converts the wire form and rejects anything
// that fails the kind's grammar, so illegal configurations are
// unrepresentable downstream.
//
// Evaluation fails closed: an ECO without a fully specified effectivity is
// never effective. Under-application is recoverable; over-application may
// already have built non-conforming product.
//
// # Error Classification
//
// All failures belong to one classified family, distinguished by kind and
// never by string matching:
//
//   - NotFound: a referenced ECO, document, or entity does not exist
//   - Validation: malformed or missing effectivity configuration
//   - State: an illegal status transition, carrying the current status
//   - Permission: the actor may not mutate the ECO (signal only)
//   - Internal: wrapped, unexpected collaborator failures
//
// Use the helper predicates to classify:
//
//	if eco.IsNotFound(err) {
//	    // surface as a 404-equivalent
//	}
//
// # Concurrency
//
// The evaluator, resolver, and planner are pure or read-only and safe for
// concurrent use. The two write paths (SetEffectivity, Transition) are
// applied as single conditional updates guarded by the status the caller
// read; a lost guard surfaces as a state error with code CONCURRENT_UPDATE.
package eco
