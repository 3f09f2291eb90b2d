package app

import (
	"github.com/vk/gridplan/internal/registry"
	"github.com/vk/gridplan/modules/carboncap"
	"github.com/vk/gridplan/modules/geography"
	"github.com/vk/gridplan/modules/loadbalance"
	"github.com/vk/gridplan/modules/objective"
	"github.com/vk/gridplan/modules/projects"
	"github.com/vk/gridplan/modules/regup"
	"github.com/vk/gridplan/modules/transmission"
	"github.com/vk/gridplan/modules/txcarbon"
)

// coreModules is the definitive list of all capability modules compiled
// into the gridplan binary.
var coreModules = []registry.Module{
	&geography.Module{},
	&projects.Module{},
	&loadbalance.Module{},
	&objective.Module{},
	&transmission.Module{},
	&carboncap.Module{},
	&regup.Module{},
	&txcarbon.Module{},
}
