package db

type Integration struct {
	ID             string
	CompanyID      string
	WholesalerID   string
	WholesalerName string
	Branza         string
	Username       string
	Password       string
	Cookies        string
	LastRefresh    int64
	IsActive       int64
}
