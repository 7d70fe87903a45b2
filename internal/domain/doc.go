// Package domain models the raw observation records that feed the basin
// health index.
//
// # Record types
//
// Collectors publish one flat JSON object per message. The "type" field
// selects which other fields are required:
//
//	discharge      station, series (regulated|unregulated), time, value
//	water_quality  gauge, parameter, time, value
//	land_cover     class, optional area and weight (naturalness, 0-100)
//	survey_answer  indicator, question, optional user/comment, optional value (1-5)
//	manual_score   indicator, value (0-100)
//
// discharge, water_quality and land_cover may name an indicator; without one
// they go to the basin's only leaf of the matching kind.
//
// # Time format
//
// RFC 3339 timestamps or bare YYYY-MM-DD dates, normalized to UTC. Discharge
// pairing matches regulated and unregulated observations on the exact instant,
// so both series must use the same convention.
//
// # Skipped answers
//
// A survey answer without a value records that the respondent skipped the
// question. It is kept with the question but does not count toward its score.
//
// # ID generation
//
// IDs are deterministic SHA-256 prefixes of the key fields, prefixed with the
// record type. See [generateID].
package domain
