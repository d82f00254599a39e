// Package domain models the time series collected for the solar production
// forecast of the Auvergne-Rhône-Alpes region.
//
// # Data Sources
//
// Solar activity comes from the NOAA Space Weather Prediction Center daily
// products archived by NGDC under
// https://www.ngdc.noaa.gov/stp/space-weather/swpc-products/daily_reports/.
// Two bulletins are used:
//
//	YYYYMMDDSGAS.txt    Solar and Geophysical Activity Summary (history)
//	YYYYMMDDdaypre.txt  Daily Space Weather Predictions (3-day forecast)
//
// Weather comes from the OpenWeatherMap One Call 3.0 API for a fixed list of
// cities, geocoded once through Nominatim. Grid data comes from the RTE
// eCO2mix regional exports.
//
// # Bulletin Conventions
//
// The SGAS bulletin is split into lettered sections introduced by a line
// starting with "A." through "F.":
//
//	A.  Energetic Events        fixed-width event table
//	B.  Proton Events: ...      "label: text"
//	C.  Geomagnetic Activity Summary: ...
//	D.  Stratwarm               obsolete, ignored
//	E.  Daily Indices           positional tokens on fixed lines
//	F.  Comments: ...
//
// Values that NOAA could not measure are printed as "?". They are recorded
// as 0 rather than rejecting the whole bulletin.
//
// # Dates
//
// Every dated row is keyed by a calendar day in UTC, formatted as YYYY-MM-DD
// ([DateLayout]). Last-download markers store the same format.
package domain
