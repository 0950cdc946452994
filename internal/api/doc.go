// Package api is the Issuer Fetch Client for the Macedonian Stock Exchange site.
//
// The site has no JSON API. History is served as an HTML page per issuer:
//
//	POST {base}/en/stats/symbolhistory/{CODE}
//	  FromDate=01/01/2024&ToDate=12/31/2024&Code={CODE}
//
// The response carries a single #resultsTable with nine columns. Issuer codes
// are discovered from the listing pages under /en/issuers/.
package api
