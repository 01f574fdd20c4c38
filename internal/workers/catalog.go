// Package workers lists the job types this module implements.
package workers

import (
	clc "fieldsales-workers/internal/workers/activity/call-log-create"
	peu "fieldsales-workers/internal/workers/activity/photo-evidence-upload"
	tc "fieldsales-workers/internal/workers/activity/task-create"
	se "fieldsales-workers/internal/workers/auth/session-end"
	sr "fieldsales-workers/internal/workers/auth/session-resolve"
	cce "fieldsales-workers/internal/workers/calendar/calendar-create-event"
	cle "fieldsales-workers/internal/workers/calendar/calendar-list-events"
	cc "fieldsales-workers/internal/workers/client/client-create"
	cs "fieldsales-workers/internal/workers/client/client-search"
	et "fieldsales-workers/internal/workers/dashboard/effective-time"
	nc "fieldsales-workers/internal/workers/dashboard/neglected-clients"
	re "fieldsales-workers/internal/workers/dashboard/report-export"
	ss "fieldsales-workers/internal/workers/dashboard/sales-series"
	fd "fieldsales-workers/internal/workers/drafts/form-draft"
	ps "fieldsales-workers/internal/workers/maps/places-search"
	oa "fieldsales-workers/internal/workers/sales/order-approve"
	oc "fieldsales-workers/internal/workers/sales/order-create"
	qc "fieldsales-workers/internal/workers/sales/quotation-create"
	vcn "fieldsales-workers/internal/workers/visit/visit-cancel"
	vci "fieldsales-workers/internal/workers/visit/visit-check-in"
	vco "fieldsales-workers/internal/workers/visit/visit-check-out"
	vsc "fieldsales-workers/internal/workers/visit/visit-schedule"
	vtm "fieldsales-workers/internal/workers/visit/visit-timer"
)

// TaskTypes is every job type a worker-manager can open, grouped by domain.
var TaskTypes = []string{
	sr.TaskType, se.TaskType,
	vci.TaskType, vco.TaskType, vtm.TaskType, vsc.TaskType, vcn.TaskType,
	cc.TaskType, cs.TaskType,
	oc.TaskType, oa.TaskType, qc.TaskType,
	clc.TaskType, tc.TaskType, peu.TaskType,
	et.TaskType, nc.TaskType, ss.TaskType, re.TaskType,
	cle.TaskType, cce.TaskType, ps.TaskType, fd.TaskType,
}
