// File: backend/services/audit-service/internal/activity/vocabulary.go

package activity

var actions = []string{
	"User Login", "User Logout", "Password Change", "Profile Update", "Transaction Created",
	"Transaction Processed", "Transaction Failed", "Account Locked", "Account Unlocked",
	"Email Sent", "SMS Sent", "Data Export", "Data Import", "Report Generated",
	"System Maintenance", "Security Alert", "Performance Warning", "Error Occurred",
	"Configuration Changed", "Backup Completed", "Restore Initiated", "Audit Trail Created",
}

var eventTypes = []string{
	"Authentication", "Authorization", "Transaction", "System", "Security", "Performance",
	"Audit", "Notification", "Maintenance", "Error", "Warning", "Info",
}

var severities = []string{
	"Low", "Medium", "High", "Critical", "Info", "Warning", "Error", "Debug",
}

var messages = []string{
	"User successfully logged into the system",
	"Failed login attempt detected",
	"Password has been changed successfully",
	"Profile information updated",
	"New transaction created and queued for processing",
	"Transaction processed successfully",
	"Transaction failed due to insufficient funds",
	"Account has been locked due to multiple failed attempts",
	"Account unlocked by administrator",
	"Email notification sent to user",
	"SMS notification sent to user",
	"Data export completed successfully",
	"Data import process started",
	"Monthly report generated and sent",
	"System maintenance window scheduled",
	"Security alert: suspicious activity detected",
	"Performance warning: high CPU usage",
	"System error occurred and logged",
	"System configuration updated",
	"Database backup completed successfully",
	"System restore process initiated",
	"Audit trail entry created for compliance",
}

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 14_0 like Mac OS X) AppleWebKit/605.1.15",
	"Mozilla/5.0 (Android 10; Mobile; rv:68.0) Gecko/68.0 Firefox/68.0",
}

var locations = []string{
	"New York, NY", "Los Angeles, CA", "Chicago, IL", "Houston, TX", "Phoenix, AZ",
	"Philadelphia, PA", "San Antonio, TX", "San Diego, CA", "Dallas, TX", "San Jose, CA",
	"Austin, TX", "Jacksonville, FL", "Fort Worth, TX", "Columbus, OH", "Charlotte, NC",
}
