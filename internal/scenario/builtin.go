package scenario

import (
	"time"

	"libralend/internal/catalog"
	"libralend/internal/lending"
)

// Builtin returns the reference scenarios for the given delays.
func Builtin(approval, issue time.Duration) []Scenario {
	dune := []catalog.Item{{ID: "Dune", Author: "Frank Herbert"}}
	shelf := []catalog.Item{
		{ID: "Dune", Author: "Frank Herbert"},
		{ID: "Emma", Author: "Jane Austen"},
	}
	const tick = time.Millisecond

	return []Scenario{
		{
			Name:       "dune-lifecycle",
			Hypothesis: "An issue request is approved after the approval delay, issued after the issue delay, and stays returned once returned",
			Catalog:    dune,
			Steps: []Step{
				Expect("Dune", lending.DisplayIssueAvailable),
				Issue("Dune"),
				Expect("Dune", lending.DisplayPendingApproval),
				Advance(approval),
				Expect("Dune", lending.DisplayIssueAvailable),
				Advance(issue),
				Expect("Dune", lending.DisplayReturnable),
				Return("Dune"),
				Expect("Dune", lending.DisplayReturned),
				Advance(approval + issue),
				Expect("Dune", lending.DisplayReturned),
			},
		},
		{
			Name:       "empty-catalog",
			Hypothesis: "An empty catalog is reported as having no items",
			Steps:      []Step{ExpectEmpty()},
		},
		{
			Name:       "issue-not-early",
			Hypothesis: "An item is not issued before both delays have elapsed",
			Catalog:    dune,
			Steps: []Step{
				Issue("Dune"),
				Advance(approval + issue - tick),
				Expect("Dune", lending.DisplayIssueAvailable),
				ReturnRejected("Dune"),
				Advance(tick),
				Expect("Dune", lending.DisplayReturnable),
			},
		},
		{
			Name:       "double-issue",
			Hypothesis: "A second issue request while pending does not change the trajectory",
			Catalog:    dune,
			Steps: []Step{
				Issue("Dune"),
				Issue("Dune"),
				Expect("Dune", lending.DisplayPendingApproval),
				Advance(approval),
				Issue("Dune"),
				Advance(issue),
				Expect("Dune", lending.DisplayReturnable),
			},
		},
		{
			Name:       "items-are-independent",
			Hypothesis: "Transitions of one item never change another item's state",
			Catalog:    shelf,
			Steps: []Step{
				Issue("Dune"),
				Expect("Emma", lending.DisplayIssueAvailable),
				Advance(approval + issue),
				Expect("Dune", lending.DisplayReturnable),
				Expect("Emma", lending.DisplayIssueAvailable),
				Issue("Emma"),
				Return("Dune"),
				Expect("Emma", lending.DisplayPendingApproval),
				Advance(approval + issue),
				Expect("Dune", lending.DisplayReturned),
				Expect("Emma", lending.DisplayReturnable),
			},
		},
		{
			Name:       "strict-return-guard",
			Hypothesis: "Returning an item that is not issued is rejected and changes nothing",
			Catalog:    dune,
			Steps: []Step{
				ReturnRejected("Dune"),
				Expect("Dune", lending.DisplayIssueAvailable),
				Issue("Dune"),
				ReturnRejected("Dune"),
				Expect("Dune", lending.DisplayPendingApproval),
			},
		},
		{
			Name:       "lenient-return-while-pending",
			Hypothesis: "With the lenient guard a return while pending sticks even after the stale timers fire",
			Catalog:    dune,
			Lenient:    true,
			Steps: []Step{
				Issue("Dune"),
				Return("Dune"),
				Expect("Dune", lending.DisplayReturned),
				Advance(approval),
				Expect("Dune", lending.DisplayReturned),
				Advance(issue),
				Expect("Dune", lending.DisplayReturned),
			},
		},
	}
}
