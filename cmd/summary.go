package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/juancollazo-ch/holded-order-monitor/internal/models/serviceresponse"
)

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// printSummary escribe el resumen legible de una ejecución (comando check).
func printSummary(w io.Writer, r serviceresponse.WorkflowResult) {
	fmt.Fprintln(w, "Execution Summary")
	fmt.Fprintln(w, strings.Repeat("-", 40))
	fmt.Fprintf(w, "Run ID: %s\n", r.RunID)
	fmt.Fprintf(w, "State: %s\n", r.State)
	fmt.Fprintf(w, "Success: %s\n", yesNo(r.Success))
	fmt.Fprintf(w, "Within Operation Hours: %s\n", yesNo(r.WithinOperationHours))

	if r.Skipped {
		fmt.Fprintf(w, "Skipped: %s\n", r.SkipReason)
	}
	if r.TotalOrdersRetrieved > 0 {
		fmt.Fprintf(w, "Total Orders Retrieved: %d\n", r.TotalOrdersRetrieved)
		if r.DuplicateOrdersFiltered > 0 {
			fmt.Fprintf(w, "Duplicates Filtered: %d\n", r.DuplicateOrdersFiltered)
		}
		if r.MalformedOrders > 0 {
			fmt.Fprintf(w, "Malformed Orders Skipped: %d\n", r.MalformedOrders)
		}
		if r.OrdersWithoutID > 0 {
			fmt.Fprintf(w, "Orders Without ID: %d\n", r.OrdersWithoutID)
		}
		fmt.Fprintf(w, "Orders with Bikes: %d\n", r.FilteredOrdersCount)
		fmt.Fprintf(w, "Email Sent: %s\n", yesNo(r.EmailSent))
	}
	fmt.Fprintf(w, "Bike References Loaded: %d\n", r.BikeReferencesLoaded)

	if len(r.Errors) > 0 {
		fmt.Fprintf(w, "\nErrors (%d):\n", len(r.Errors))
		for _, e := range r.Errors {
			fmt.Fprintf(w, "  - %s\n", e)
		}
	}

	if len(r.OrdersWithBikes) > 0 {
		fmt.Fprintln(w, "\nConway Bike Orders Found:")
		for i, o := range r.OrdersWithBikes {
			id := o.DocNumber
			if id == "" {
				id = o.ID
			}
			customer := o.ContactName
			if customer == "" {
				customer = "Unknown"
			}
			fmt.Fprintf(w, "  %d. Order %s\n", i+1, id)
			fmt.Fprintf(w, "     Customer: %s\n", customer)
			fmt.Fprintf(w, "     Total: %s\n", o.Total.String())
			if len(o.MatchingReferences) > 0 {
				fmt.Fprintf(w, "     References: %s\n", strings.Join(o.MatchingReferences, ", "))
			}
		}
	}
}

func printSelfTest(w io.Writer, report serviceresponse.SelfTestReport) {
	fmt.Fprintln(w, "Component Test Results")
	fmt.Fprintln(w, strings.Repeat("-", 40))

	components := []struct {
		name  string
		check serviceresponse.ComponentCheck
	}{
		{"catalog", report.Catalog},
		{"order_source", report.OrderSource},
		{"notifier", report.Notifier},
	}
	for _, c := range components {
		status := "PASS"
		if !c.check.Success {
			status = "FAIL"
		}
		fmt.Fprintf(w, "%s: %s\n", c.name, status)
		if c.check.Error != "" {
			fmt.Fprintf(w, "  Error: %s\n", c.check.Error)
		}
	}

	overall := "ALL TESTS PASSED"
	if !report.OverallSuccess {
		overall = "SOME TESTS FAILED"
	}
	fmt.Fprintf(w, "\nOverall Result: %s\n", overall)
}
