package model

// Service is an entry of the barbershop catalog.
type Service struct {
	ID          string  `json:"id" yaml:"id"`
	Name        string  `json:"name" yaml:"name"`
	Price       float64 `json:"price" yaml:"price"`
	Duration    int     `json:"duration" yaml:"duration"` // minutes
	Description string  `json:"description,omitempty" yaml:"description"`
	Active      bool    `json:"active" yaml:"active"`
}

// DefaultServices is the catalog seeded into an empty database.
func DefaultServices() []Service {
	return []Service{
		{ID: "svc_1", Name: "Corte Masculino", Price: 50, Duration: 45, Description: "Corte de cabelo masculino tradicional", Active: true},
		{ID: "svc_2", Name: "Barba", Price: 40, Duration: 30, Description: "Modelagem e aparo de barba", Active: true},
		{ID: "svc_3", Name: "Corte + Barba", Price: 80, Duration: 60, Description: "Combo corte masculino e barba", Active: true},
		{ID: "svc_4", Name: "Navalhado", Price: 35, Duration: 25, Description: "Navalhado completo", Active: true},
		{ID: "svc_5", Name: "Coloração", Price: 70, Duration: 90, Description: "Coloração de cabelo", Active: true},
		{ID: "svc_6", Name: "Hidratação", Price: 45, Duration: 40, Description: "Tratamento de hidratação profunda", Active: true},
	}
}
