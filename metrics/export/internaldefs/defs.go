package internaldefs

import (
	crewgate "github.com/crewgate/crewgate"
)

// CounterDef names one engine counter for exposition.
type CounterDef struct {
	ID   crewgate.MetricID
	Name string
	Help string
}

// CounterDefs is the full exported counter set, in engine order.
var CounterDefs = []CounterDef{
	{ID: crewgate.MetricRateLimitHit, Name: "crewgate_rate_limit_hit_total", Help: "Reads that found a rate-limit key locked."},
	{ID: crewgate.MetricRateLimitLocked, Name: "crewgate_rate_limit_locked_total", Help: "Failed attempts that tripped a lockout."},
	{ID: crewgate.MetricRateLimitCleared, Name: "crewgate_rate_limit_cleared_total", Help: "Successful attempts and explicit rate-limit clears."},
	{ID: crewgate.MetricTwoFactorSetupStarted, Name: "crewgate_twofactor_setup_started_total", Help: "Two-factor setup initializations."},
	{ID: crewgate.MetricTwoFactorEnabled, Name: "crewgate_twofactor_enabled_total", Help: "Completed two-factor setups."},
	{ID: crewgate.MetricTwoFactorDisabled, Name: "crewgate_twofactor_disabled_total", Help: "Explicit two-factor disables."},
	{ID: crewgate.MetricTwoFactorSuccess, Name: "crewgate_twofactor_success_total", Help: "Verifications satisfied by TOTP."},
	{ID: crewgate.MetricTwoFactorFailure, Name: "crewgate_twofactor_failure_total", Help: "Failed two-factor verifications."},
	{ID: crewgate.MetricBackupCodeUsed, Name: "crewgate_backup_code_used_total", Help: "Verifications satisfied by a backup code."},
	{ID: crewgate.MetricBackupCodeRegenerated, Name: "crewgate_backup_code_regenerated_total", Help: "Backup-code replacements."},
	{ID: crewgate.MetricCheckInSuccess, Name: "crewgate_checkin_success_total", Help: "Recorded check-ins."},
	{ID: crewgate.MetricCheckInDenied, Name: "crewgate_checkin_denied_total", Help: "Geofence and invariant check-in rejections."},
	{ID: crewgate.MetricCheckOut, Name: "crewgate_checkout_total", Help: "Recorded check-outs."},
	{ID: crewgate.MetricBreakStarted, Name: "crewgate_break_started_total", Help: "Opened breaks."},
	{ID: crewgate.MetricBreakEnded, Name: "crewgate_break_ended_total", Help: "Closed breaks."},
	{ID: crewgate.MetricDeviceTokenIssued, Name: "crewgate_device_token_issued_total", Help: "Trusted-device tokens issued."},
	{ID: crewgate.MetricDeviceTokenRejected, Name: "crewgate_device_token_rejected_total", Help: "Failed trusted-device token validations."},
}
